package bracket

import "github.com/google/uuid"

type Outcome string

const (
	OutcomeWinner Outcome = "winner"
	OutcomeLoser  Outcome = "loser"
)

// Placement is a single downstream write produced by a completed match.
type Placement struct {
	PhaseIndex int       `json:"phase_index"`
	Stage      Stage     `json:"stage"`
	Slot       int       `json:"slot"`
	Position   Position  `json:"position"`
	TeamID     uuid.UUID `json:"team_id"`
	Outcome    Outcome   `json:"outcome"`
}

// feed maps a source slot onto the slot and position it feeds one round later.
func feed(slot int) (int, Position) {
	next := (slot + 1) / 2
	if slot%2 != 0 {
		return next, PositionA
	}
	return next, PositionB
}

// Advance computes where the teams of a completed match go next.
//
// Winners of an elimination match move into the following phase when it is an
// elimination phase. Losers of a double-elimination winner-stage match drop
// into the loser stage of the same phase. Round-robin sources and loser-stage
// sources produce nothing; those teams are placed by the organizer.
//
// The result depends only on the match's current scores, so running it again
// yields the same placements.
func Advance(t *Tournament, m *Match) ([]Placement, error) {
	current, err := t.Phase(m.PhaseIndex)
	if err != nil {
		return nil, err
	}
	winner, loser, ok, err := m.Outcome()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMatchNotCompleted
	}

	var placements []Placement

	switch current.BracketType {
	case RoundRobin:
		return nil, nil
	case SingleElimination:
	case DoubleElimination:
		if m.Stage != StageWinner {
			return nil, nil
		}
		slot, pos := feed(m.Slot)
		placements = append(placements, Placement{
			PhaseIndex: m.PhaseIndex,
			Stage:      StageLoser,
			Slot:       slot,
			Position:   pos,
			TeamID:     loser,
			Outcome:    OutcomeLoser,
		})
	default:
		return nil, ErrUnknownBracketType
	}

	next, err := t.Phase(m.PhaseIndex + 1)
	if err != nil {
		// final round
		return placements, nil
	}

	switch next.BracketType {
	case SingleElimination, DoubleElimination:
		slot, pos := feed(m.Slot)
		placements = append(placements, Placement{
			PhaseIndex: m.PhaseIndex + 1,
			Stage:      StageWinner,
			Slot:       slot,
			Position:   pos,
			TeamID:     winner,
			Outcome:    OutcomeWinner,
		})
	case RoundRobin:
	default:
		return nil, ErrUnknownBracketType
	}

	return placements, nil
}
