package bracket

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validatorFixture struct {
	tournament *Tournament
	matches    []Match
	teams      []uuid.UUID
}

func newValidatorFixture() *validatorFixture {
	tournament := newTournament(SingleElimination, DoubleElimination)
	tournament.Status = BracketLocked
	teams := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	tournament.Teams = append(tournament.Teams, teams...)

	var matches []Match
	for slot := 1; slot <= 2; slot++ {
		matches = append(matches, Match{ID: uuid.New(), PhaseIndex: 0, Stage: StageWinner, Slot: slot, Status: MatchPending})
	}
	return &validatorFixture{tournament: tournament, matches: matches, teams: teams}
}

func TestValidateUpdate_Accepts(t *testing.T) {
	f := newValidatorFixture()

	target, err := ValidateUpdate(f.tournament, f.matches, BracketUpdate{PhaseIndex: 0, Slot: 2, TeamID: f.teams[0], Position: PositionA})
	require.NoError(t, err)
	assert.Equal(t, 2, target.Slot)
	assert.Nil(t, f.matches[1].TeamA, "validation performs no writes")
}

func TestValidateUpdate_SameTeamSamePosition(t *testing.T) {
	f := newValidatorFixture()
	f.matches[0].TeamA = &f.teams[0]

	_, err := ValidateUpdate(f.tournament, f.matches, BracketUpdate{PhaseIndex: 0, Slot: 1, TeamID: f.teams[0], Position: PositionA})
	assert.NoError(t, err)
}

func TestValidateUpdate_Rejections(t *testing.T) {
	testCases := []struct {
		name     string
		setup    func(f *validatorFixture)
		update   func(f *validatorFixture) BracketUpdate
		expected error
	}{
		{
			name: "bad position",
			update: func(f *validatorFixture) BracketUpdate {
				return BracketUpdate{PhaseIndex: 0, Slot: 1, TeamID: f.teams[0], Position: Position("C")}
			},
			expected: ErrInvalidPosition,
		},
		{
			name: "slot zero",
			update: func(f *validatorFixture) BracketUpdate {
				return BracketUpdate{PhaseIndex: 0, Slot: 0, TeamID: f.teams[0], Position: PositionA}
			},
			expected: ErrInvalidSlot,
		},
		{
			name:  "tournament not bracket locked",
			setup: func(f *validatorFixture) { f.tournament.Status = TournamentInProgress },
			update: func(f *validatorFixture) BracketUpdate {
				return BracketUpdate{PhaseIndex: 0, Slot: 1, TeamID: f.teams[0], Position: PositionA}
			},
			expected: ErrForbiddenTransition,
		},
		{
			name: "phase does not exist",
			update: func(f *validatorFixture) BracketUpdate {
				return BracketUpdate{PhaseIndex: 3, Slot: 1, TeamID: f.teams[0], Position: PositionA}
			},
			expected: ErrPhaseNotFound,
		},
		{
			name: "loser stage on single elimination",
			update: func(f *validatorFixture) BracketUpdate {
				return BracketUpdate{PhaseIndex: 0, Stage: StageLoser, Slot: 1, TeamID: f.teams[0], Position: PositionA}
			},
			expected: ErrInvalidStage,
		},
		{
			name:  "pending team",
			setup: func(f *validatorFixture) { f.tournament.PendingTeams = append(f.tournament.PendingTeams, uuid.New()) },
			update: func(f *validatorFixture) BracketUpdate {
				return BracketUpdate{PhaseIndex: 0, Slot: 1, TeamID: f.tournament.PendingTeams[0], Position: PositionA}
			},
			expected: ErrTeamNotApproved,
		},
		{
			name: "missing match",
			update: func(f *validatorFixture) BracketUpdate {
				return BracketUpdate{PhaseIndex: 0, Slot: 9, TeamID: f.teams[0], Position: PositionA}
			},
			expected: ErrMatchNotFound,
		},
		{
			name: "completed match",
			setup: func(f *validatorFixture) {
				f.matches[0].TeamA, f.matches[0].TeamB = &f.teams[2], &f.teams[3]
				require.NoError(t, f.matches[0].RecordScore(1, 0))
			},
			update: func(f *validatorFixture) BracketUpdate {
				return BracketUpdate{PhaseIndex: 0, Slot: 1, TeamID: f.teams[0], Position: PositionA}
			},
			expected: ErrMatchCompleted,
		},
		{
			name:  "team already on the other side",
			setup: func(f *validatorFixture) { f.matches[0].TeamB = &f.teams[0] },
			update: func(f *validatorFixture) BracketUpdate {
				return BracketUpdate{PhaseIndex: 0, Slot: 1, TeamID: f.teams[0], Position: PositionA}
			},
			expected: ErrTeamInMatch,
		},
		{
			name:  "team holds another slot in the phase",
			setup: func(f *validatorFixture) { f.matches[0].TeamB = &f.teams[0] },
			update: func(f *validatorFixture) BracketUpdate {
				return BracketUpdate{PhaseIndex: 0, Slot: 2, TeamID: f.teams[0], Position: PositionA}
			},
			expected: ErrTeamAlreadyPlaced,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newValidatorFixture()
			if tc.setup != nil {
				tc.setup(f)
			}
			target, err := ValidateUpdate(f.tournament, f.matches, tc.update(f))
			assert.Nil(t, target)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestValidateUpdate_TeamFromCompletedMatch(t *testing.T) {
	f := newValidatorFixture()
	loser := f.teams[1]
	matches := []Match{
		{ID: uuid.New(), PhaseIndex: 1, Stage: StageWinner, Slot: 1, TeamA: &f.teams[0], TeamB: &loser, Status: MatchCompleted, Winner: &f.teams[0]},
		{ID: uuid.New(), PhaseIndex: 1, Stage: StageLoser, Slot: 1, TeamA: &loser, Status: MatchPending},
		{ID: uuid.New(), PhaseIndex: 1, Stage: StageLoser, Slot: 2, Status: MatchPending},
	}

	target, err := ValidateUpdate(f.tournament, matches, BracketUpdate{PhaseIndex: 1, Stage: StageLoser, Slot: 2, TeamID: loser, Position: PositionB})
	assert.Nil(t, target)
	assert.ErrorIs(t, err, ErrTeamAlreadyPlaced, "its pending loser-stage slot still counts")

	// once its pending slot is cleared, the completed winner-stage match does not block it
	matches[1].TeamA = nil
	target, err = ValidateUpdate(f.tournament, matches, BracketUpdate{PhaseIndex: 1, Stage: StageLoser, Slot: 2, TeamID: loser, Position: PositionB})
	require.NoError(t, err)
	assert.Equal(t, 2, target.Slot)
}

func TestValidateUpdate_CheckOrder(t *testing.T) {
	f := newValidatorFixture()
	f.tournament.Status = RegistrationLocked

	// unknown phase and pending team, but the status check runs first
	_, err := ValidateUpdate(f.tournament, f.matches, BracketUpdate{PhaseIndex: 7, Slot: 1, TeamID: uuid.New(), Position: PositionB})
	assert.ErrorIs(t, err, ErrOperationNotAllowed)
}

func TestValidateUpdate_DoubleEliminationStages(t *testing.T) {
	f := newValidatorFixture()
	loserMatches := []Match{
		{ID: uuid.New(), PhaseIndex: 1, Stage: StageWinner, Slot: 1},
		{ID: uuid.New(), PhaseIndex: 1, Stage: StageLoser, Slot: 1},
	}

	target, err := ValidateUpdate(f.tournament, loserMatches, BracketUpdate{PhaseIndex: 1, Stage: StageLoser, Slot: 1, TeamID: f.teams[1], Position: PositionB})
	require.NoError(t, err)
	assert.Equal(t, StageLoser, target.Stage)

	target, err = ValidateUpdate(f.tournament, loserMatches, BracketUpdate{PhaseIndex: 1, Slot: 1, TeamID: f.teams[1], Position: PositionB})
	require.NoError(t, err)
	assert.Equal(t, StageWinner, target.Stage, "empty stage means the primary stage")
}
