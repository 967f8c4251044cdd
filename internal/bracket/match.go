package bracket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchScheduled MatchStatus = "scheduled"
	MatchCompleted MatchStatus = "completed"
)

// Stage separates winner and loser matches inside a double-elimination phase.
// Round-robin matches carry no stage.
type Stage string

const (
	StageNone   Stage = ""
	StageWinner Stage = "winner"
	StageLoser  Stage = "loser"
)

type Position string

const (
	PositionA Position = "A"
	PositionB Position = "B"
)

func ParsePosition(s string) (Position, error) {
	switch p := Position(s); p {
	case PositionA, PositionB:
		return p, nil
	default:
		return "", ErrInvalidPosition
	}
}

func (p Position) Other() Position {
	if p == PositionA {
		return PositionB
	}
	return PositionA
}

type Match struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`

	// (PhaseIndex, Stage, Slot) is unique within a tournament
	PhaseIndex int   `db:"phase_index" json:"phase_index"`
	Stage      Stage `db:"stage" json:"stage"`
	Slot       int   `db:"slot" json:"slot"`

	TeamA *uuid.UUID `db:"team_a" json:"team_a"`
	TeamB *uuid.UUID `db:"team_b" json:"team_b"`

	ScoreA *int        `db:"score_a" json:"score_a"`
	ScoreB *int        `db:"score_b" json:"score_b"`
	Winner *uuid.UUID  `db:"winner" json:"winner"`
	Status MatchStatus `db:"status" json:"status"`

	ScheduledAt *time.Time `db:"scheduled_at" json:"scheduled_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

func (m *Match) TeamAt(pos Position) *uuid.UUID {
	if pos == PositionA {
		return m.TeamA
	}
	return m.TeamB
}

func (m *Match) SetTeam(pos Position, teamID *uuid.UUID) {
	if pos == PositionA {
		m.TeamA = teamID
	} else {
		m.TeamB = teamID
	}
}

// Holds reports whether the team occupies either position.
func (m *Match) Holds(teamID uuid.UUID) bool {
	return (m.TeamA != nil && *m.TeamA == teamID) || (m.TeamB != nil && *m.TeamB == teamID)
}

func (m *Match) IsCompleted() bool {
	return m.Status == MatchCompleted
}

// Outcome derives winner and loser from the current scores. It is recomputed
// from scratch on every call; ok is false for the unplayed 0-0 placeholder.
func (m *Match) Outcome() (winner, loser uuid.UUID, ok bool, err error) {
	if m.TeamA == nil || m.TeamB == nil {
		return uuid.Nil, uuid.Nil, false, ErrMissingTeams
	}
	if m.ScoreA == nil || m.ScoreB == nil {
		return uuid.Nil, uuid.Nil, false, nil
	}
	a, b := *m.ScoreA, *m.ScoreB
	switch {
	case a < 0 || b < 0:
		return uuid.Nil, uuid.Nil, false, ErrNegativeScore
	case a == 0 && b == 0:
		return uuid.Nil, uuid.Nil, false, nil
	case a == b:
		return uuid.Nil, uuid.Nil, false, ErrTiedScore
	case a > b:
		return *m.TeamA, *m.TeamB, true, nil
	default:
		return *m.TeamB, *m.TeamA, true, nil
	}
}

// RecordScore stores a result and keeps Winner and Status consistent with it.
// A 0-0 result is kept as a placeholder and leaves the match open.
func (m *Match) RecordScore(scoreA, scoreB int) error {
	if m.IsCompleted() {
		return ErrMatchCompleted
	}
	if scoreA < 0 || scoreB < 0 {
		return ErrNegativeScore
	}
	if m.TeamA == nil || m.TeamB == nil {
		return ErrMissingTeams
	}
	if scoreA == scoreB && scoreA != 0 {
		return ErrTiedScore
	}

	m.ScoreA, m.ScoreB = &scoreA, &scoreB
	winner, _, ok, err := m.Outcome()
	if err != nil {
		return err
	}
	if ok {
		m.Winner = &winner
		m.Status = MatchCompleted
	}
	return nil
}

// Schedule sets the match time. Completed matches keep their time.
func (m *Match) Schedule(at time.Time) error {
	if m.IsCompleted() {
		return ErrMatchCompleted
	}
	m.ScheduledAt = &at
	m.Status = MatchScheduled
	return nil
}
