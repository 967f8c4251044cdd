package store

import (
	"context"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/google/uuid"
)

// SlotAssignment writes a team into one position of a match, creating the
// match when the slot has none yet. The write only lands if the position is
// empty, already holds TeamID, or holds Replace.
type SlotAssignment struct {
	TournamentID uuid.UUID
	PhaseIndex   int
	Stage        bracket.Stage
	Slot         int
	Position     bracket.Position
	TeamID       uuid.UUID
	Replace      *uuid.UUID
}

// Store is the persistence boundary of the engine. Implementations must make
// AssignSlot a compare-and-set and must run WithTx callbacks atomically.
type Store interface {
	CreateTournament(ctx context.Context, t *bracket.Tournament) error
	GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error)
	ListTournamentsByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]bracket.Tournament, error)
	GetPhase(ctx context.Context, tournamentID uuid.UUID, index int) (*bracket.Phase, error)

	// Status writes are conditional on the status the caller validated against.
	SetTournamentStatus(ctx context.Context, id uuid.UUID, from, to bracket.TournamentStatus) error
	SetPhaseStatus(ctx context.Context, id uuid.UUID, index int, from, to bracket.PhaseStatus) error

	AddPendingTeam(ctx context.Context, id, teamID uuid.UUID) error
	ApproveTeam(ctx context.Context, id, teamID uuid.UUID) error
	RemoveTeam(ctx context.Context, id, teamID uuid.UUID) error
	AddReferee(ctx context.Context, id, refereeID uuid.UUID) error

	CreateMatches(ctx context.Context, matches []bracket.Match) error
	GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error)
	ListMatches(ctx context.Context, tournamentID uuid.UUID, phaseIndex int) ([]bracket.Match, error)
	AssignSlot(ctx context.Context, a SlotAssignment) (*bracket.Match, error)
	SaveMatchResult(ctx context.Context, m *bracket.Match) error
	ScheduleMatch(ctx context.Context, m *bracket.Match) error

	WithTx(ctx context.Context, fn func(Store) error) error
}
