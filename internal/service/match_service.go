package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/notify"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
	"github.com/google/uuid"
)

type MatchService struct {
	store    store.Store
	notifier notify.Notifier
}

func NewMatchService(store store.Store, notifier notify.Notifier) *MatchService {
	return &MatchService{store: store, notifier: notifier}
}

type MatchResult struct {
	Match      *bracket.Match      `json:"match"`
	Placements []bracket.Placement `json:"placements"`
	// Downstream matches as they look after the placements landed
	Advanced []bracket.Match `json:"advanced"`
}

func (s *MatchService) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	return s.store.GetMatch(ctx, id)
}

// ReportScore records a result and, when it decides the match, moves the
// teams on. Saving the score and every placement happen in one transaction:
// if any placement hits a slot already holding another team, nothing is kept.
func (s *MatchService) ReportScore(ctx context.Context, matchID uuid.UUID, scoreA, scoreB int) (*MatchResult, error) {
	var result *MatchResult
	var tournament *bracket.Tournament

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		match, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		t, err := tx.GetTournament(ctx, match.TournamentID)
		if err != nil {
			return err
		}
		if err := t.Require(bracket.OpReportScore); err != nil {
			return err
		}

		if err := match.RecordScore(scoreA, scoreB); err != nil {
			return err
		}
		if err := tx.SaveMatchResult(ctx, match); err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}

		result = &MatchResult{Match: match}
		tournament = t
		if !match.IsCompleted() {
			return nil
		}
		return applyAdvancement(ctx, tx, t, result)
	})
	if err != nil {
		return nil, err
	}

	s.notifyResult(tournament, result)
	return result, nil
}

// AdvanceMatch replays the placements of a completed match. Placements that
// already landed are accepted as no-ops, so this repairs a bracket after an
// interrupted completion without disturbing anything else.
func (s *MatchService) AdvanceMatch(ctx context.Context, matchID uuid.UUID) (*MatchResult, error) {
	var result *MatchResult
	var tournament *bracket.Tournament

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		match, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if !match.IsCompleted() {
			return bracket.ErrMatchNotCompleted
		}
		t, err := tx.GetTournament(ctx, match.TournamentID)
		if err != nil {
			return err
		}
		if err := t.Require(bracket.OpReportScore); err != nil {
			return err
		}

		result = &MatchResult{Match: match}
		tournament = t
		return applyAdvancement(ctx, tx, t, result)
	})
	if err != nil {
		return nil, err
	}

	s.notifyAdvanced(tournament, result)
	return result, nil
}

func applyAdvancement(ctx context.Context, tx store.Store, t *bracket.Tournament, result *MatchResult) error {
	placements, err := bracket.Advance(t, result.Match)
	if err != nil {
		return err
	}
	result.Placements = placements

	for _, p := range placements {
		next, err := tx.AssignSlot(ctx, store.SlotAssignment{
			TournamentID: t.ID,
			PhaseIndex:   p.PhaseIndex,
			Stage:        p.Stage,
			Slot:         p.Slot,
			Position:     p.Position,
			TeamID:       p.TeamID,
		})
		if err != nil {
			return fmt.Errorf("failed to place %s of match %s: %w", p.Outcome, result.Match.ID, err)
		}
		result.Advanced = append(result.Advanced, *next)
	}
	return nil
}

func (s *MatchService) ScheduleMatch(ctx context.Context, matchID uuid.UUID, at time.Time) (*bracket.Match, error) {
	var match *bracket.Match
	var tournament *bracket.Tournament

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		m, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		t, err := tx.GetTournament(ctx, m.TournamentID)
		if err != nil {
			return err
		}
		if err := t.Require(bracket.OpScheduleMatch); err != nil {
			return err
		}
		if err := m.Schedule(at.UTC()); err != nil {
			return err
		}
		if err := tx.ScheduleMatch(ctx, m); err != nil {
			return err
		}
		match, tournament = m, t
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, team := range []*uuid.UUID{match.TeamA, match.TeamB} {
		if team == nil {
			continue
		}
		s.notifier.Notify(notify.Notification{
			TournamentID: tournament.ID,
			TeamID:       *team,
			Message:      fmt.Sprintf("%s: your match is scheduled for %s", tournament.Name, match.ScheduledAt.Format(time.RFC1123)),
			Link:         matchLink(match.ID),
		})
	}
	return match, nil
}

func (s *MatchService) notifyResult(t *bracket.Tournament, result *MatchResult) {
	m := result.Match
	if !m.IsCompleted() {
		return
	}
	score := fmt.Sprintf("%d-%d", utils.OrZero(m.ScoreA), utils.OrZero(m.ScoreB))
	winner := utils.OrZero(m.Winner)
	for _, team := range []*uuid.UUID{m.TeamA, m.TeamB} {
		if team == nil {
			continue
		}
		message := fmt.Sprintf("%s: you lost %s", t.Name, score)
		if *team == winner {
			message = fmt.Sprintf("%s: you won %s", t.Name, score)
		}
		s.notifier.Notify(notify.Notification{
			TournamentID: t.ID,
			TeamID:       *team,
			Message:      message,
			Link:         matchLink(m.ID),
		})
	}
	s.notifyAdvanced(t, result)
}

func (s *MatchService) notifyAdvanced(t *bracket.Tournament, result *MatchResult) {
	for i, p := range result.Placements {
		message := fmt.Sprintf("%s: you advanced to phase %d slot %d", t.Name, p.PhaseIndex+1, p.Slot)
		if p.Outcome == bracket.OutcomeLoser {
			message = fmt.Sprintf("%s: you dropped to the loser bracket, slot %d", t.Name, p.Slot)
		}
		s.notifier.Notify(notify.Notification{
			TournamentID: t.ID,
			TeamID:       p.TeamID,
			Message:      message,
			Link:         matchLink(result.Advanced[i].ID),
		})
	}
}
