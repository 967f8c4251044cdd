package bracket

import "fmt"

type TournamentStatus string

const (
	RegistrationOpen     TournamentStatus = "registration_open"
	RegistrationLocked   TournamentStatus = "registration_locked"
	BracketLocked        TournamentStatus = "bracket_locked"
	TournamentInProgress TournamentStatus = "in_progress"
	TournamentComplete   TournamentStatus = "complete"
)

// Reopening registration is the only backward edge.
var tournamentTransitions = map[TournamentStatus][]TournamentStatus{
	RegistrationOpen:     {RegistrationLocked},
	RegistrationLocked:   {BracketLocked, RegistrationOpen},
	BracketLocked:        {TournamentInProgress},
	TournamentInProgress: {TournamentComplete},
	TournamentComplete:   {},
}

func ParseTournamentStatus(s string) (TournamentStatus, error) {
	status := TournamentStatus(s)
	if _, ok := tournamentTransitions[status]; !ok {
		return "", ErrUnknownStatus
	}
	return status, nil
}

func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	for _, allowed := range tournamentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s TournamentStatus) IsTerminal() bool {
	return len(tournamentTransitions[s]) == 0
}

// CheckTransition validates a status change against the transition table and
// its guards without touching the tournament.
func (t *Tournament) CheckTransition(next TournamentStatus) error {
	if _, ok := tournamentTransitions[next]; !ok {
		return ErrUnknownStatus
	}
	if !t.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, t.Status, next)
	}
	switch next {
	case RegistrationLocked, BracketLocked:
		if len(t.Teams) < 2 {
			return fmt.Errorf("%w: entering %s with %d", ErrNotEnoughTeams, next, len(t.Teams))
		}
	}
	return nil
}

func (t *Tournament) Transition(next TournamentStatus) error {
	if err := t.CheckTransition(next); err != nil {
		return err
	}
	t.Status = next
	return nil
}

type PhaseStatus string

const (
	PhasePending    PhaseStatus = "pending"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseComplete   PhaseStatus = "complete"
)

func ParsePhaseStatus(s string) (PhaseStatus, error) {
	status := PhaseStatus(s)
	switch status {
	case PhasePending, PhaseInProgress, PhaseComplete:
		return status, nil
	default:
		return "", ErrUnknownStatus
	}
}

func (s PhaseStatus) next() (PhaseStatus, bool) {
	switch s {
	case PhasePending:
		return PhaseInProgress, true
	case PhaseInProgress:
		return PhaseComplete, true
	default:
		return "", false
	}
}

// Transition moves the phase one step forward. Phases are driven by the caller
// and are not tied to the tournament status.
func (p *Phase) Transition(next PhaseStatus) error {
	if _, err := ParsePhaseStatus(string(next)); err != nil {
		return err
	}
	allowed, ok := p.Status.next()
	if !ok || allowed != next {
		return fmt.Errorf("%w: phase %d %s -> %s", ErrTransitionNotAllowed, p.Index, p.Status, next)
	}
	p.Status = next
	return nil
}

type Operation int

const (
	OpRegisterTeam Operation = iota
	OpApproveTeam
	OpGenerateBracket
	OpEditBracket
	OpScheduleMatch
	OpReportScore
)

func (op Operation) String() string {
	switch op {
	case OpRegisterTeam:
		return "register team"
	case OpApproveTeam:
		return "approve team"
	case OpGenerateBracket:
		return "generate bracket"
	case OpEditBracket:
		return "edit bracket"
	case OpScheduleMatch:
		return "schedule match"
	case OpReportScore:
		return "report score"
	default:
		return "unknown operation"
	}
}

var permittedOperations = map[Operation][]TournamentStatus{
	OpRegisterTeam:    {RegistrationOpen},
	OpApproveTeam:     {RegistrationOpen, RegistrationLocked},
	OpGenerateBracket: {RegistrationLocked, BracketLocked},
	OpEditBracket:     {BracketLocked},
	OpScheduleMatch:   {BracketLocked, TournamentInProgress},
	OpReportScore:     {TournamentInProgress},
}

func (s TournamentStatus) Permits(op Operation) bool {
	for _, status := range permittedOperations[op] {
		if status == s {
			return true
		}
	}
	return false
}

// Require fails unless the tournament's current status permits op.
func (t *Tournament) Require(op Operation) error {
	if !t.Status.Permits(op) {
		return fmt.Errorf("%w: %s while %s", ErrOperationNotAllowed, op, t.Status)
	}
	return nil
}
