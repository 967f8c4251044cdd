package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/middleware"
	"github.com/AdamBeresnev/bracket-engine/internal/notify"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var ErrNoCaller = fmt.Errorf("%w: caller identity missing from context", bracket.ErrValidation)

type TournamentService struct {
	store    store.Store
	notifier notify.Notifier
}

func NewTournamentService(store store.Store, notifier notify.Notifier) *TournamentService {
	return &TournamentService{store: store, notifier: notifier}
}

type CreateTournamentInput struct {
	Name            string
	Description     string
	MaxParticipants int
	Phases          []bracket.BracketType
}

type PhaseData struct {
	Phase   bracket.Phase   `json:"phase"`
	Matches []bracket.Match `json:"matches"`
}

type TournamentData struct {
	Tournament  *bracket.Tournament `json:"tournament"`
	Phases      []PhaseData         `json:"phases"`
	NextMatchID *uuid.UUID          `json:"next_match_id"`
}

// CreateTournament opens a tournament for registration. The caller becomes
// the organizer.
func (s *TournamentService) CreateTournament(ctx context.Context, in CreateTournamentInput) (uuid.UUID, error) {
	organizerID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, ErrNoCaller
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return uuid.Nil, bracket.ErrNameRequired
	}
	if len(in.Phases) == 0 {
		return uuid.Nil, bracket.ErrNoPhases
	}
	if in.MaxParticipants < 2 || in.MaxParticipants > bracket.MaxTeamCount {
		return uuid.Nil, bracket.ErrMaxParticipants
	}

	tournament := bracket.Tournament{
		ID:              uuid.New(),
		OrganizerID:     organizerID,
		Name:            name,
		Description:     utils.StringOrNil(in.Description),
		MaxParticipants: in.MaxParticipants,
		Status:          bracket.RegistrationOpen,
	}
	for _, bt := range in.Phases {
		if _, err := bracket.ParseBracketType(string(bt)); err != nil {
			return uuid.Nil, err
		}
		tournament.Phases = append(tournament.Phases, bracket.Phase{BracketType: bt, Status: bracket.PhasePending})
	}

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		return tx.CreateTournament(ctx, &tournament)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return tournament.ID, nil
}

func (s *TournamentService) GetTournamentData(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	tournament, err := s.store.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	phases := make([]PhaseData, len(tournament.Phases))
	g, gctx := errgroup.WithContext(ctx)
	for i, phase := range tournament.Phases {
		i, phase := i, phase
		g.Go(func() error {
			matches, err := s.store.ListMatches(gctx, id, phase.Index)
			if err != nil {
				return fmt.Errorf("failed to load matches for phase %d: %w", phase.Index, err)
			}
			phases[i] = PhaseData{Phase: phase, Matches: matches}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// the first open match that is ready to be played
	var nextMatchID *uuid.UUID
	for _, p := range phases {
		for _, m := range p.Matches {
			if !m.IsCompleted() && m.TeamA != nil && m.TeamB != nil {
				id := m.ID
				nextMatchID = &id
				break
			}
		}
		if nextMatchID != nil {
			break
		}
	}

	return &TournamentData{
		Tournament:  tournament,
		Phases:      phases,
		NextMatchID: nextMatchID,
	}, nil
}

func (s *TournamentService) GetTournamentsForUser(ctx context.Context) ([]bracket.Tournament, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrNoCaller
	}
	return s.store.ListTournamentsByOrganizer(ctx, userID)
}

func (s *TournamentService) RegisterTeam(ctx context.Context, tournamentID, teamID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		if err := t.Register(teamID); err != nil {
			return err
		}
		return tx.AddPendingTeam(ctx, tournamentID, teamID)
	})
	if err != nil {
		return err
	}

	s.notifyTeam(tournamentID, teamID, "Your registration was received and awaits approval")
	return nil
}

func (s *TournamentService) ApproveTeam(ctx context.Context, tournamentID, teamID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		if err := t.Approve(teamID); err != nil {
			return err
		}
		return tx.ApproveTeam(ctx, tournamentID, teamID)
	})
	if err != nil {
		return err
	}

	s.notifyTeam(tournamentID, teamID, "Your team was approved")
	return nil
}

func (s *TournamentService) RejectTeam(ctx context.Context, tournamentID, teamID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		if err := t.Reject(teamID); err != nil {
			return err
		}
		return tx.RemoveTeam(ctx, tournamentID, teamID)
	})
	if err != nil {
		return err
	}

	s.notifyTeam(tournamentID, teamID, "Your registration was rejected")
	return nil
}

func (s *TournamentService) AddReferee(ctx context.Context, tournamentID, refereeID uuid.UUID) error {
	return s.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetTournament(ctx, tournamentID); err != nil {
			return err
		}
		return tx.AddReferee(ctx, tournamentID, refereeID)
	})
}

// TransitionStatus moves the tournament to next. The write is conditional on
// the status the transition was validated against, so a concurrent change
// fails with a conflict instead of being overwritten.
func (s *TournamentService) TransitionStatus(ctx context.Context, tournamentID uuid.UUID, next bracket.TournamentStatus) (*bracket.Tournament, error) {
	var tournament *bracket.Tournament
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		from := t.Status
		if err := t.Transition(next); err != nil {
			return err
		}
		if err := tx.SetTournamentStatus(ctx, tournamentID, from, next); err != nil {
			return err
		}
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, teamID := range tournament.Teams {
		s.notifyTeam(tournamentID, teamID, fmt.Sprintf("%s is now %s", tournament.Name, statusLabel(next)))
	}
	return tournament, nil
}

func (s *TournamentService) TransitionPhase(ctx context.Context, tournamentID uuid.UUID, index int, next bracket.PhaseStatus) (*bracket.Phase, error) {
	var phase *bracket.Phase
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		p, err := t.Phase(index)
		if err != nil {
			return err
		}
		from := p.Status
		if err := p.Transition(next); err != nil {
			return err
		}
		if err := tx.SetPhaseStatus(ctx, tournamentID, index, from, next); err != nil {
			return err
		}
		phase = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return phase, nil
}

func (s *TournamentService) notifyTeam(tournamentID, teamID uuid.UUID, message string) {
	s.notifier.Notify(notify.Notification{
		TournamentID: tournamentID,
		TeamID:       teamID,
		Message:      message,
		Link:         tournamentLink(tournamentID),
	})
}

func tournamentLink(id uuid.UUID) string {
	return fmt.Sprintf("/tournaments/%s", id)
}

func statusLabel(status bracket.TournamentStatus) string {
	return strings.ReplaceAll(string(status), "_", " ")
}
