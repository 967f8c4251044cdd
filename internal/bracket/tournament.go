package bracket

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type BracketType string

const (
	SingleElimination BracketType = "single_elim"
	DoubleElimination BracketType = "double_elim"
	RoundRobin        BracketType = "round_robin"
)

func ParseBracketType(s string) (BracketType, error) {
	bt := BracketType(s)
	switch bt {
	case SingleElimination, DoubleElimination, RoundRobin:
		return bt, nil
	default:
		return "", ErrUnknownBracketType
	}
}

// PrimaryStage is the stage a phase's first-round matches are tagged with.
func (bt BracketType) PrimaryStage() Stage {
	switch bt {
	case SingleElimination, DoubleElimination:
		return StageWinner
	default:
		return StageNone
	}
}

// HasStage reports whether matches of this bracket type can carry the stage.
func (bt BracketType) HasStage(stage Stage) bool {
	switch bt {
	case SingleElimination:
		return stage == StageWinner
	case DoubleElimination:
		return stage == StageWinner || stage == StageLoser
	case RoundRobin:
		return stage == StageNone
	default:
		return false
	}
}

type Phase struct {
	TournamentID uuid.UUID   `db:"tournament_id" json:"tournament_id"`
	Index        int         `db:"phase_index" json:"phase_index"`
	BracketType  BracketType `db:"bracket_type" json:"bracket_type"`
	Status       PhaseStatus `db:"status" json:"status"`
}

type Tournament struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	OrganizerID     uuid.UUID        `db:"organizer_id" json:"organizer_id"`
	Name            string           `db:"name" json:"name"`
	Description     *string          `db:"description" json:"description"`
	MaxParticipants int              `db:"max_participants" json:"max_participants"`
	Status          TournamentStatus `db:"status" json:"status"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`

	Phases       []Phase     `db:"-" json:"phases,omitempty"`
	Teams        []uuid.UUID `db:"-" json:"teams,omitempty"`
	PendingTeams []uuid.UUID `db:"-" json:"pending_teams,omitempty"`
	Referees     []uuid.UUID `db:"-" json:"referees,omitempty"`
}

func (t *Tournament) Phase(index int) (*Phase, error) {
	if index < 0 || index >= len(t.Phases) {
		return nil, ErrPhaseNotFound
	}
	return &t.Phases[index], nil
}

func (t *Tournament) IsApproved(teamID uuid.UUID) bool {
	return slices.Contains(t.Teams, teamID)
}

func (t *Tournament) IsPending(teamID uuid.UUID) bool {
	return slices.Contains(t.PendingTeams, teamID)
}

// Register adds a team to the pending list.
func (t *Tournament) Register(teamID uuid.UUID) error {
	if err := t.Require(OpRegisterTeam); err != nil {
		return err
	}
	if t.IsApproved(teamID) || t.IsPending(teamID) {
		return ErrTeamRegistered
	}
	t.PendingTeams = append(t.PendingTeams, teamID)
	return nil
}

// Approve moves a pending team into the approved list.
func (t *Tournament) Approve(teamID uuid.UUID) error {
	if err := t.Require(OpApproveTeam); err != nil {
		return err
	}
	idx := slices.Index(t.PendingTeams, teamID)
	if idx < 0 {
		return ErrTeamNotFound
	}
	if len(t.Teams) >= t.MaxParticipants {
		return ErrTournamentFull
	}
	t.PendingTeams = slices.Delete(t.PendingTeams, idx, idx+1)
	t.Teams = append(t.Teams, teamID)
	return nil
}

// Reject drops a pending team.
func (t *Tournament) Reject(teamID uuid.UUID) error {
	if err := t.Require(OpApproveTeam); err != nil {
		return err
	}
	idx := slices.Index(t.PendingTeams, teamID)
	if idx < 0 {
		return ErrTeamNotFound
	}
	t.PendingTeams = slices.Delete(t.PendingTeams, idx, idx+1)
	return nil
}
