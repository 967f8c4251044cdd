package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/db"
	"github.com/AdamBeresnev/bracket-engine/internal/live"
	"github.com/AdamBeresnev/bracket-engine/internal/middleware"
	"github.com/AdamBeresnev/bracket-engine/internal/notify"
	"github.com/AdamBeresnev/bracket-engine/internal/service"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiClient struct {
	t       *testing.T
	baseURL string
	userID  uuid.UUID
}

func (c *apiClient) do(method, path string, body interface{}) *http.Response {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.userID != uuid.Nil {
		req.Header.Set(middleware.UserIDHeader, c.userID.String())
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func setupServer(t *testing.T) (*httptest.Server, *live.Hub) {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database.DB))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := live.NewHub(nil)
	go hub.Run(ctx)

	router := newRouter(store.NewTournamentStore(database), notify.Multi{notify.Discard, hub}, hub, []string{"*"})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, hub
}

func TestRoutes_RequireUserID(t *testing.T) {
	server, _ := setupServer(t)
	anonymous := &apiClient{t: t, baseURL: server.URL}

	resp := anonymous.do(http.MethodGet, "/api/tournaments", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = anonymous.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoutes_TournamentLifecycle(t *testing.T) {
	server, hub := setupServer(t)
	organizer := &apiClient{t: t, baseURL: server.URL, userID: uuid.New()}

	resp := organizer.do(http.MethodPost, "/api/tournaments", map[string]interface{}{
		"name":             "Autumn Open",
		"max_participants": 4,
		"phases":           []string{"single_elim"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, resp, &created)
	base := "/api/tournaments/" + created.ID.String()

	teams := []uuid.UUID{uuid.New(), uuid.New()}
	for _, team := range teams {
		resp = organizer.do(http.MethodPost, base+"/teams", map[string]uuid.UUID{"team_id": team})
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		resp = organizer.do(http.MethodPost, base+"/teams/"+team.String()+"/approve", nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}

	// registration is still open, so no skeleton yet
	resp = organizer.do(http.MethodPost, base+"/phases/0/generate", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = organizer.do(http.MethodPost, base+"/status", map[string]string{"status": "registration_locked"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// a team count past the tournament's limit is rejected before any work
	resp = organizer.do(http.MethodPost, base+"/phases/0/generate", map[string]int64{"team_count": 1<<62 + 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = organizer.do(http.MethodPost, base+"/phases/0/generate", map[string]bool{"seed": true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var generated []bracket.Match
	decode(t, resp, &generated)
	require.Len(t, generated, 1)
	matchPath := "/api/matches/" + generated[0].ID.String()

	for _, status := range []string{"bracket_locked", "in_progress"} {
		resp = organizer.do(http.MethodPost, base+"/status", map[string]string{"status": status})
		require.Equal(t, http.StatusOK, resp.StatusCode, status)
	}

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/tournaments/" + created.ID.String()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount(created.ID) == 1 }, time.Second, 10*time.Millisecond)

	resp = organizer.do(http.MethodPost, matchPath+"/score", map[string]int{"score_a": 2, "score_b": 2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "ties are rejected")

	resp = organizer.do(http.MethodPost, matchPath+"/score", map[string]int{"score_a": 3, "score_b": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result service.MatchResult
	decode(t, resp, &result)
	assert.Equal(t, bracket.MatchCompleted, result.Match.Status)
	assert.Equal(t, teams[0], *result.Match.Winner)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type    string              `json:"type"`
		Payload notify.Notification `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, live.MessageNotification, msg.Type)
	assert.Equal(t, created.ID, msg.Payload.TournamentID)

	resp = organizer.do(http.MethodPost, matchPath+"/score", map[string]int{"score_a": 0, "score_b": 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = organizer.do(http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var data service.TournamentData
	decode(t, resp, &data)
	assert.Equal(t, bracket.TournamentInProgress, data.Tournament.Status)
	require.Len(t, data.Phases, 1)
	assert.Equal(t, bracket.MatchCompleted, data.Phases[0].Matches[0].Status)

	resp = organizer.do(http.MethodGet, "/api/tournaments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []bracket.Tournament
	decode(t, resp, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestRoutes_ErrorStatuses(t *testing.T) {
	server, _ := setupServer(t)
	client := &apiClient{t: t, baseURL: server.URL, userID: uuid.New()}

	testCases := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{name: "malformed id", method: http.MethodGet, path: "/api/matches/not-a-uuid", want: http.StatusBadRequest},
		{name: "unknown match", method: http.MethodGet, path: "/api/matches/" + uuid.NewString(), want: http.StatusNotFound},
		{name: "unknown tournament", method: http.MethodGet, path: "/api/tournaments/" + uuid.NewString(), want: http.StatusNotFound},
		{name: "missing score", method: http.MethodPost, path: "/api/matches/" + uuid.NewString() + "/score", body: map[string]int{"score_a": 1}, want: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, path: "/api/tournaments", body: map[string]string{"title": "x"}, want: http.StatusBadRequest},
		{name: "unknown status", method: http.MethodPost, path: "/api/tournaments/" + uuid.NewString() + "/status", body: map[string]string{"status": "paused"}, want: http.StatusBadRequest},
		{name: "bad phase index", method: http.MethodPost, path: "/api/tournaments/" + uuid.NewString() + "/phases/first/generate", want: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := client.do(tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}

	resp, err := http.Get(server.URL + "/ws/tournaments/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
