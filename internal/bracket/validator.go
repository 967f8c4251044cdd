package bracket

import (
	"fmt"

	"github.com/google/uuid"
)

// BracketUpdate is an organizer's request to put a team into a slot position.
// An empty Stage means the phase's primary stage.
type BracketUpdate struct {
	PhaseIndex int
	Stage      Stage
	Slot       int
	TeamID     uuid.UUID
	Position   Position
}

// ValidateUpdate authorizes a manual bracket edit. It performs no writes and
// returns the target match on success. Checks run in a fixed order and stop at
// the first failure.
func ValidateUpdate(t *Tournament, matchesInPhase []Match, u BracketUpdate) (*Match, error) {
	if _, err := ParsePosition(string(u.Position)); err != nil {
		return nil, err
	}
	if u.Slot < 1 {
		return nil, ErrInvalidSlot
	}

	if t.Status != BracketLocked {
		return nil, fmt.Errorf("%w: bracket edits require %s, tournament is %s", ErrOperationNotAllowed, BracketLocked, t.Status)
	}

	phase, err := t.Phase(u.PhaseIndex)
	if err != nil {
		return nil, err
	}
	stage := u.Stage
	if stage == StageNone {
		stage = phase.BracketType.PrimaryStage()
	}
	if !phase.BracketType.HasStage(stage) {
		return nil, ErrInvalidStage
	}

	if !t.IsApproved(u.TeamID) {
		return nil, ErrTeamNotApproved
	}

	var target *Match
	for i := range matchesInPhase {
		m := &matchesInPhase[i]
		if m.PhaseIndex == u.PhaseIndex && m.Stage == stage && m.Slot == u.Slot {
			target = m
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: phase %d %s slot %d", ErrMatchNotFound, u.PhaseIndex, stage, u.Slot)
	}
	if target.IsCompleted() {
		return nil, ErrMatchCompleted
	}

	if other := target.TeamAt(u.Position.Other()); other != nil && *other == u.TeamID {
		return nil, ErrTeamInMatch
	}

	// completed matches are history, not occupied slots
	for i := range matchesInPhase {
		m := &matchesInPhase[i]
		if m == target || m.PhaseIndex != u.PhaseIndex || m.IsCompleted() {
			continue
		}
		if m.Holds(u.TeamID) {
			return nil, fmt.Errorf("%w: %s slot %d", ErrTeamAlreadyPlaced, m.Stage, m.Slot)
		}
	}

	return target, nil
}
