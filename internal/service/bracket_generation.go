package service

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/notify"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/google/uuid"
)

type BracketService struct {
	store    store.Store
	notifier notify.Notifier
}

func NewBracketService(store store.Store, notifier notify.Notifier) *BracketService {
	return &BracketService{store: store, notifier: notifier}
}

type GenerateOptions struct {
	// Defaults to the number of approved teams. Must not exceed the
	// tournament's max participants.
	TeamCount *int
	// Fill first-round slots with approved teams in approval order
	Seed bool
}

// GenerateSkeleton creates the empty matches of a phase. It refuses to run
// twice on the same phase.
func (s *BracketService) GenerateSkeleton(ctx context.Context, tournamentID uuid.UUID, phaseIndex int, opts GenerateOptions) ([]bracket.Match, error) {
	var matches []bracket.Match
	var tournament *bracket.Tournament

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		if err := t.Require(bracket.OpGenerateBracket); err != nil {
			return err
		}
		phase, err := t.Phase(phaseIndex)
		if err != nil {
			return err
		}

		existing, err := tx.ListMatches(ctx, tournamentID, phaseIndex)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: phase %d", bracket.ErrPhaseGenerated, phaseIndex)
		}

		teamCount := len(t.Teams)
		if opts.TeamCount != nil {
			teamCount = *opts.TeamCount
			if teamCount < 0 || teamCount > t.MaxParticipants {
				return fmt.Errorf("%w: got %d, max participants is %d", bracket.ErrTeamCountRange, teamCount, t.MaxParticipants)
			}
		}
		template, err := bracket.GenerateTemplate(teamCount, phase.BracketType)
		if err != nil {
			return err
		}

		matches = make([]bracket.Match, 0, len(template))
		for _, slot := range template {
			m := bracket.Match{
				TournamentID: tournamentID,
				PhaseIndex:   phaseIndex,
				Stage:        slot.Stage,
				Slot:         slot.Slot,
				Status:       bracket.MatchPending,
			}
			if opts.Seed {
				m.TeamA = seededTeam(t.Teams, slot.SeedA)
				m.TeamB = seededTeam(t.Teams, slot.SeedB)
			}
			matches = append(matches, m)
		}

		tournament = t
		return tx.CreateMatches(ctx, matches)
	})
	if err != nil {
		return nil, err
	}

	if opts.Seed {
		for _, m := range matches {
			s.notifyPlacement(tournament, &m)
		}
	}
	return matches, nil
}

// seededTeam returns nil for seeds past the end of the team list; those slots
// are byes the organizer resolves.
func seededTeam(teams []uuid.UUID, seed int) *uuid.UUID {
	if seed < 0 || seed >= len(teams) {
		return nil
	}
	id := teams[seed]
	return &id
}

// UpdateBracket places a team into a slot position on the organizer's behalf.
// The edit is validated against the phase as read inside the transaction and
// written with a compare-and-set against the occupant seen during validation.
func (s *BracketService) UpdateBracket(ctx context.Context, tournamentID uuid.UUID, u bracket.BracketUpdate) (*bracket.Match, error) {
	var updated *bracket.Match
	var tournament *bracket.Tournament

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		matches, err := tx.ListMatches(ctx, tournamentID, u.PhaseIndex)
		if err != nil {
			return err
		}

		target, err := bracket.ValidateUpdate(t, matches, u)
		if err != nil {
			return err
		}

		updated, err = tx.AssignSlot(ctx, store.SlotAssignment{
			TournamentID: tournamentID,
			PhaseIndex:   target.PhaseIndex,
			Stage:        target.Stage,
			Slot:         target.Slot,
			Position:     u.Position,
			TeamID:       u.TeamID,
			Replace:      target.TeamAt(u.Position),
		})
		tournament = t
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(notify.Notification{
		TournamentID: tournamentID,
		TeamID:       u.TeamID,
		Message:      fmt.Sprintf("%s: you were placed in phase %d slot %d", tournament.Name, updated.PhaseIndex+1, updated.Slot),
		Link:         matchLink(updated.ID),
	})
	return updated, nil
}

func (s *BracketService) notifyPlacement(t *bracket.Tournament, m *bracket.Match) {
	for _, team := range []*uuid.UUID{m.TeamA, m.TeamB} {
		if team == nil {
			continue
		}
		s.notifier.Notify(notify.Notification{
			TournamentID: t.ID,
			TeamID:       *team,
			Message:      fmt.Sprintf("%s: the bracket for phase %d is out", t.Name, m.PhaseIndex+1),
			Link:         matchLink(m.ID),
		})
	}
}

func matchLink(id uuid.UUID) string {
	return fmt.Sprintf("/matches/%s", id)
}
