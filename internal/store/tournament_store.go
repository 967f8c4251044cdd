package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

type TournamentStore struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db, q: db}
}

const (
	createTournamentQuery = `INSERT INTO tournaments (id, organizer_id, name, description, max_participants, status, created_at)
		VALUES (:id, :organizer_id, :name, :description, :max_participants, :status, :created_at)`
	createPhasesQuery = `INSERT INTO phases (tournament_id, phase_index, bracket_type, status)
		VALUES (:tournament_id, :phase_index, :bracket_type, :status)`
	getTournamentQuery = "SELECT * FROM tournaments WHERE id = ?"
	listPhasesQuery    = "SELECT * FROM phases WHERE tournament_id = ? ORDER BY phase_index ASC"
	getPhaseQuery      = "SELECT * FROM phases WHERE tournament_id = ? AND phase_index = ?"
	listTeamsQuery     = `SELECT team_id, state FROM tournament_teams
		WHERE tournament_id = ? ORDER BY approval_order ASC, rowid ASC`
	listRefereesQuery = "SELECT referee_id FROM tournament_referees WHERE tournament_id = ? ORDER BY rowid ASC"
	listByOrganizer   = "SELECT * FROM tournaments WHERE organizer_id = ? ORDER BY created_at DESC"

	setTournamentStatusQuery = "UPDATE tournaments SET status = ? WHERE id = ? AND status = ?"
	setPhaseStatusQuery      = "UPDATE phases SET status = ? WHERE tournament_id = ? AND phase_index = ? AND status = ?"

	addPendingTeamQuery = `INSERT INTO tournament_teams (tournament_id, team_id, state, registered_at)
		VALUES (?, ?, 'pending', ?)`
	approveTeamQuery = `UPDATE tournament_teams SET state = 'approved',
		approval_order = (SELECT COALESCE(MAX(approval_order), 0) + 1 FROM tournament_teams WHERE tournament_id = ?)
		WHERE tournament_id = ? AND team_id = ? AND state = 'pending'`
	removeTeamQuery = "DELETE FROM tournament_teams WHERE tournament_id = ? AND team_id = ?"
	addRefereeQuery = "INSERT OR IGNORE INTO tournament_referees (tournament_id, referee_id) VALUES (?, ?)"
)

func (s *TournamentStore) CreateTournament(ctx context.Context, t *bracket.Tournament) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if _, err := sqlx.NamedExecContext(ctx, s.q, createTournamentQuery, t); err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}

	for i := range t.Phases {
		t.Phases[i].TournamentID = t.ID
		t.Phases[i].Index = i
	}
	if len(t.Phases) == 0 {
		return nil
	}
	if _, err := sqlx.NamedExecContext(ctx, s.q, createPhasesQuery, t.Phases); err != nil {
		return fmt.Errorf("failed to insert phases: %w", err)
	}
	return nil
}

func (s *TournamentStore) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	if err := sqlx.GetContext(ctx, s.q, &tournament, getTournamentQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w %s", bracket.ErrTournamentNotFound, id)
		}
		return nil, err
	}

	if err := sqlx.SelectContext(ctx, s.q, &tournament.Phases, listPhasesQuery, id); err != nil {
		return nil, fmt.Errorf("failed to load phases: %w", err)
	}

	var registrations []struct {
		TeamID uuid.UUID `db:"team_id"`
		State  string    `db:"state"`
	}
	if err := sqlx.SelectContext(ctx, s.q, &registrations, listTeamsQuery, id); err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}
	for _, r := range registrations {
		if r.State == "approved" {
			tournament.Teams = append(tournament.Teams, r.TeamID)
		} else {
			tournament.PendingTeams = append(tournament.PendingTeams, r.TeamID)
		}
	}

	if err := sqlx.SelectContext(ctx, s.q, &tournament.Referees, listRefereesQuery, id); err != nil {
		return nil, fmt.Errorf("failed to load referees: %w", err)
	}

	return &tournament, nil
}

func (s *TournamentStore) ListTournamentsByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := sqlx.SelectContext(ctx, s.q, &tournaments, listByOrganizer, organizerID)
	return tournaments, err
}

func (s *TournamentStore) GetPhase(ctx context.Context, tournamentID uuid.UUID, index int) (*bracket.Phase, error) {
	var phase bracket.Phase
	if err := sqlx.GetContext(ctx, s.q, &phase, getPhaseQuery, tournamentID, index); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w %d", bracket.ErrPhaseNotFound, index)
		}
		return nil, err
	}
	return &phase, nil
}

func (s *TournamentStore) SetTournamentStatus(ctx context.Context, id uuid.UUID, from, to bracket.TournamentStatus) error {
	res, err := s.q.ExecContext(ctx, setTournamentStatusQuery, to, id, from)
	if err != nil {
		return err
	}
	return expectOneRow(res, fmt.Errorf("%w: tournament %s is no longer %s", bracket.ErrConflict, id, from))
}

func (s *TournamentStore) SetPhaseStatus(ctx context.Context, id uuid.UUID, index int, from, to bracket.PhaseStatus) error {
	res, err := s.q.ExecContext(ctx, setPhaseStatusQuery, to, id, index, from)
	if err != nil {
		return err
	}
	return expectOneRow(res, fmt.Errorf("%w: phase %d is no longer %s", bracket.ErrConflict, index, from))
}

func (s *TournamentStore) AddPendingTeam(ctx context.Context, id, teamID uuid.UUID) error {
	_, err := s.q.ExecContext(ctx, addPendingTeamQuery, id, teamID, time.Now().UTC())
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
		return bracket.ErrTeamRegistered
	}
	return err
}

func (s *TournamentStore) ApproveTeam(ctx context.Context, id, teamID uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, approveTeamQuery, id, id, teamID)
	if err != nil {
		return err
	}
	return expectOneRow(res, bracket.ErrTeamNotFound)
}

func (s *TournamentStore) RemoveTeam(ctx context.Context, id, teamID uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, removeTeamQuery, id, teamID)
	if err != nil {
		return err
	}
	return expectOneRow(res, bracket.ErrTeamNotFound)
}

func (s *TournamentStore) AddReferee(ctx context.Context, id, refereeID uuid.UUID) error {
	_, err := s.q.ExecContext(ctx, addRefereeQuery, id, refereeID)
	return err
}

// WithTx runs fn against a store bound to a single transaction. Nested calls
// reuse the outer transaction.
func (s *TournamentStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if _, ok := s.q.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&TournamentStore{db: s.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func expectOneRow(res sql.Result, notMatched error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notMatched
	}
	return nil
}
