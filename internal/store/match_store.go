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
)

const (
	createMatchesQuery = `INSERT INTO matches (id, tournament_id, phase_index, stage, slot, team_a, team_b, status, created_at, updated_at)
		VALUES (:id, :tournament_id, :phase_index, :stage, :slot, :team_a, :team_b, :status, :created_at, :updated_at)`
	getMatchQuery    = "SELECT * FROM matches WHERE id = ?"
	getMatchBySlot   = "SELECT * FROM matches WHERE tournament_id = ? AND phase_index = ? AND stage = ? AND slot = ?"
	listMatchesQuery = `SELECT * FROM matches WHERE tournament_id = ? AND phase_index = ?
		ORDER BY CASE stage WHEN 'loser' THEN 1 ELSE 0 END, slot ASC`

	// %[1]s is the position column, team_a or team_b. The update only applies
	// while the match is open and the position is empty, already holds the
	// team, or holds the team the caller expects to replace.
	assignSlotQuery = `INSERT INTO matches (id, tournament_id, phase_index, stage, slot, %[1]s, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 'pending', ?, ?)
		ON CONFLICT (tournament_id, phase_index, stage, slot) DO UPDATE
		SET %[1]s = excluded.%[1]s, updated_at = excluded.updated_at
		WHERE matches.status != 'completed'
		AND (matches.%[1]s IS NULL OR matches.%[1]s = excluded.%[1]s OR matches.%[1]s = ?)`

	saveResultQuery = `UPDATE matches SET score_a = ?, score_b = ?, winner = ?, status = ?, updated_at = ?
		WHERE id = ? AND status != 'completed'`
	scheduleQuery = `UPDATE matches SET scheduled_at = ?, status = ?, updated_at = ?
		WHERE id = ? AND status != 'completed'`
)

func positionColumn(pos bracket.Position) (string, error) {
	switch pos {
	case bracket.PositionA:
		return "team_a", nil
	case bracket.PositionB:
		return "team_b", nil
	default:
		return "", bracket.ErrInvalidPosition
	}
}

func (s *TournamentStore) CreateMatches(ctx context.Context, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range matches {
		if matches[i].ID == uuid.Nil {
			matches[i].ID = uuid.New()
		}
		if matches[i].Status == "" {
			matches[i].Status = bracket.MatchPending
		}
		matches[i].CreatedAt = now
		matches[i].UpdatedAt = now
	}

	if _, err := sqlx.NamedExecContext(ctx, s.q, createMatchesQuery, matches); err != nil {
		return fmt.Errorf("failed to insert matches: %w", err)
	}
	return nil
}

func (s *TournamentStore) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	if err := sqlx.GetContext(ctx, s.q, &match, getMatchQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w %s", bracket.ErrMatchNotFound, id)
		}
		return nil, err
	}
	return &match, nil
}

func (s *TournamentStore) getMatchBySlot(ctx context.Context, tournamentID uuid.UUID, phaseIndex int, stage bracket.Stage, slot int) (*bracket.Match, error) {
	var match bracket.Match
	if err := sqlx.GetContext(ctx, s.q, &match, getMatchBySlot, tournamentID, phaseIndex, stage, slot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: phase %d %s slot %d", bracket.ErrMatchNotFound, phaseIndex, stage, slot)
		}
		return nil, err
	}
	return &match, nil
}

func (s *TournamentStore) ListMatches(ctx context.Context, tournamentID uuid.UUID, phaseIndex int) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, s.q, &matches, listMatchesQuery, tournamentID, phaseIndex)
	return matches, err
}

func (s *TournamentStore) AssignSlot(ctx context.Context, a SlotAssignment) (*bracket.Match, error) {
	column, err := positionColumn(a.Position)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx, fmt.Sprintf(assignSlotQuery, column),
		uuid.New(), a.TournamentID, a.PhaseIndex, a.Stage, a.Slot, a.TeamID, now, now, a.Replace)
	if err != nil {
		return nil, fmt.Errorf("failed to assign slot: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	match, err := s.getMatchBySlot(ctx, a.TournamentID, a.PhaseIndex, a.Stage, a.Slot)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if match.IsCompleted() {
			return nil, bracket.ErrMatchCompleted
		}
		return nil, fmt.Errorf("%w: phase %d %s slot %d position %s", bracket.ErrSlotTaken, a.PhaseIndex, a.Stage, a.Slot, a.Position)
	}
	return match, nil
}

func (s *TournamentStore) SaveMatchResult(ctx context.Context, m *bracket.Match) error {
	m.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, saveResultQuery, m.ScoreA, m.ScoreB, m.Winner, m.Status, m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("failed to save match result: %w", err)
	}
	return s.checkOpenMatchUpdate(ctx, res, m.ID)
}

func (s *TournamentStore) ScheduleMatch(ctx context.Context, m *bracket.Match) error {
	m.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, scheduleQuery, m.ScheduledAt, m.Status, m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("failed to schedule match: %w", err)
	}
	return s.checkOpenMatchUpdate(ctx, res, m.ID)
}

// checkOpenMatchUpdate tells a missing match apart from one that was completed
// by a concurrent writer.
func (s *TournamentStore) checkOpenMatchUpdate(ctx context.Context, res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetMatch(ctx, id); err != nil {
		return err
	}
	return bracket.ErrMatchCompleted
}
