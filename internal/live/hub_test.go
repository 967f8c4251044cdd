package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/notify"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(func(*http.Request) bool { return true })
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := chi.NewRouter()
	r.Get("/ws/tournaments/{tournamentID}", hub.ServeWs)
	server := httptest.NewServer(r)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, tournamentID uuid.UUID) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/tournaments/" + tournamentID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_DeliversToRoom(t *testing.T) {
	hub, server := startHub(t)

	watched, other := uuid.New(), uuid.New()
	conn := dial(t, server, watched)
	otherConn := dial(t, server, other)

	require.Eventually(t, func() bool {
		return hub.ClientCount(watched) == 1 && hub.ClientCount(other) == 1
	}, time.Second, 10*time.Millisecond)

	n := notify.Notification{TournamentID: watched, TeamID: uuid.New(), Message: "Match ready", Link: "/matches/1"}
	hub.Notify(n)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string              `json:"type"`
		Payload notify.Notification `json:"payload"`
		RoomID  string              `json:"room_id"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageNotification, msg.Type)
	assert.Equal(t, n, msg.Payload)
	assert.Equal(t, "tournament_"+watched.String(), msg.RoomID)

	// the other room gets nothing
	otherConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = otherConn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, server := startHub(t)

	tournamentID := uuid.New()
	conn := dial(t, server, tournamentID)
	require.Eventually(t, func() bool { return hub.ClientCount(tournamentID) == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount(tournamentID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsBadTournamentID(t *testing.T) {
	_, server := startHub(t)

	resp, err := http.Get(server.URL + "/ws/tournaments/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
