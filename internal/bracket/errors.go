package bracket

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine wraps exactly one of these,
// so callers can branch with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrForbiddenTransition = errors.New("forbidden transition")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
)

var (
	ErrNegativeTeamCount  = fmt.Errorf("%w: team count must not be negative", ErrValidation)
	ErrTooFewTeams        = fmt.Errorf("%w: elimination brackets need at least 2 teams", ErrValidation)
	ErrTooManyTeams       = fmt.Errorf("%w: team count is above the supported maximum", ErrValidation)
	ErrTeamCountRange     = fmt.Errorf("%w: team count must be between 0 and the tournament's max participants", ErrValidation)
	ErrUnknownBracketType = fmt.Errorf("%w: unknown bracket type", ErrValidation)
	ErrNegativeScore      = fmt.Errorf("%w: scores must not be negative", ErrValidation)
	ErrTiedScore          = fmt.Errorf("%w: tied scores cannot decide a match", ErrValidation)
	ErrMissingTeams       = fmt.Errorf("%w: both teams must be set before a result is recorded", ErrValidation)
	ErrInvalidPosition    = fmt.Errorf("%w: position must be A or B", ErrValidation)
	ErrInvalidSlot        = fmt.Errorf("%w: slot must be 1 or greater", ErrValidation)
	ErrInvalidStage       = fmt.Errorf("%w: stage does not exist for this bracket type", ErrValidation)
	ErrTeamNotApproved    = fmt.Errorf("%w: team is not an approved participant", ErrValidation)
	ErrNameRequired       = fmt.Errorf("%w: tournament name is required", ErrValidation)
	ErrNoPhases           = fmt.Errorf("%w: a tournament needs at least one phase", ErrValidation)
	ErrMaxParticipants    = fmt.Errorf("%w: max participants must be between 2 and the team count limit", ErrValidation)
	ErrUnknownStatus      = fmt.Errorf("%w: unknown status", ErrValidation)
	ErrMatchNotCompleted  = fmt.Errorf("%w: match has no winner yet", ErrValidation)

	ErrTransitionNotAllowed = fmt.Errorf("%w: status change is not permitted", ErrForbiddenTransition)
	ErrNotEnoughTeams       = fmt.Errorf("%w: at least 2 approved teams are required", ErrForbiddenTransition)
	ErrOperationNotAllowed  = fmt.Errorf("%w: operation is not permitted in the current status", ErrForbiddenTransition)

	ErrMatchCompleted    = fmt.Errorf("%w: match is already completed", ErrConflict)
	ErrTeamInMatch       = fmt.Errorf("%w: team already occupies the other position of this match", ErrConflict)
	ErrTeamAlreadyPlaced = fmt.Errorf("%w: team already holds another slot in this phase", ErrConflict)
	ErrTeamRegistered    = fmt.Errorf("%w: team is already registered", ErrConflict)
	ErrTournamentFull    = fmt.Errorf("%w: tournament has reached its participant limit", ErrConflict)
	ErrSlotTaken         = fmt.Errorf("%w: slot position already holds a different team", ErrConflict)
	ErrPhaseGenerated    = fmt.Errorf("%w: phase already has matches", ErrConflict)

	ErrTournamentNotFound = fmt.Errorf("%w: tournament", ErrNotFound)
	ErrPhaseNotFound      = fmt.Errorf("%w: phase", ErrNotFound)
	ErrMatchNotFound      = fmt.Errorf("%w: match", ErrNotFound)
	ErrTeamNotFound       = fmt.Errorf("%w: team registration", ErrNotFound)
)
