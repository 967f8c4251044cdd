package service

import (
	"context"
	"sync"
	"testing"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/middleware"
	"github.com/AdamBeresnev/bracket-engine/internal/notify"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	// every new connection would get its own empty in-memory database
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

type recorder struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (r *recorder) Notify(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) For(teamID uuid.UUID) []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Notification
	for _, n := range r.got {
		if n.TeamID == teamID {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = nil
}

type testEnv struct {
	store       *store.TournamentStore
	notifier    *recorder
	tournaments *TournamentService
	brackets    *BracketService
	matches     *MatchService
	ctx         context.Context
	organizerID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	tournamentStore := store.NewTournamentStore(db)
	notifier := &recorder{}
	organizerID := uuid.New()

	return &testEnv{
		store:       tournamentStore,
		notifier:    notifier,
		tournaments: NewTournamentService(tournamentStore, notifier),
		brackets:    NewBracketService(tournamentStore, notifier),
		matches:     NewMatchService(tournamentStore, notifier),
		ctx:         middleware.WithUserID(context.Background(), organizerID),
		organizerID: organizerID,
	}
}

// createTournament opens a tournament and gets teamCount teams approved, in
// order, with registration still open.
func (e *testEnv) createTournament(t *testing.T, teamCount int, phases ...bracket.BracketType) (uuid.UUID, []uuid.UUID) {
	t.Helper()

	id, err := e.tournaments.CreateTournament(e.ctx, CreateTournamentInput{
		Name:            "Test Tournament",
		MaxParticipants: 8,
		Phases:          phases,
	})
	require.NoError(t, err)

	teams := make([]uuid.UUID, teamCount)
	for i := range teams {
		teams[i] = uuid.New()
		require.NoError(t, e.tournaments.RegisterTeam(e.ctx, id, teams[i]))
		require.NoError(t, e.tournaments.ApproveTeam(e.ctx, id, teams[i]))
	}
	return id, teams
}

func (e *testEnv) transition(t *testing.T, id uuid.UUID, statuses ...bracket.TournamentStatus) {
	t.Helper()
	for _, status := range statuses {
		_, err := e.tournaments.TransitionStatus(e.ctx, id, status)
		require.NoError(t, err)
	}
}

// matchAt finds the match in a phase by stage and slot.
func (e *testEnv) matchAt(t *testing.T, id uuid.UUID, phase int, stage bracket.Stage, slot int) *bracket.Match {
	t.Helper()

	matches, err := e.store.ListMatches(e.ctx, id, phase)
	require.NoError(t, err)
	for i := range matches {
		if matches[i].Stage == stage && matches[i].Slot == slot {
			return &matches[i]
		}
	}
	require.Failf(t, "match not found", "phase %d %s slot %d", phase, stage, slot)
	return nil
}
