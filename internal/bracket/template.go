package bracket

import (
	"fmt"
	"math/bits"
)

// TemplateSlot is an empty match placeholder in a freshly generated phase.
// SeedA and SeedB are zero-based team indices: the round-robin pair for
// round-robin phases, the standard seeding pair for elimination first rounds.
// Loser-stage slots have no seeds and hold -1.
type TemplateSlot struct {
	Slot  int
	Stage Stage
	SeedA int
	SeedB int
}

// MaxTeamCount bounds the size of a generated phase. A round robin at the
// limit already has 523776 matches.
const MaxTeamCount = 1 << 10

// largest power of two an int can hold
const maxPowerOfTwo = 1 << (bits.UintSize - 2)

// NextPowerOfTwo returns the smallest power of two >= n, with 1 for n <= 1.
// Values past the largest representable power of two return that power.
func NextPowerOfTwo(n int) int {
	size := 1
	for size < n && size < maxPowerOfTwo {
		size <<= 1
	}
	return size
}

// GenerateTemplate builds the team-less skeleton of a phase.
//
// Elimination formats need at least two teams. Round robin accepts zero or one
// team and yields no matches.
func GenerateTemplate(teamCount int, bt BracketType) ([]TemplateSlot, error) {
	if teamCount < 0 {
		return nil, ErrNegativeTeamCount
	}
	if teamCount > MaxTeamCount {
		return nil, fmt.Errorf("%w: got %d, limit is %d", ErrTooManyTeams, teamCount, MaxTeamCount)
	}

	switch bt {
	case SingleElimination:
		if teamCount < 2 {
			return nil, ErrTooFewTeams
		}
		return firstRound(NextPowerOfTwo(teamCount)), nil
	case DoubleElimination:
		if teamCount < 2 {
			return nil, ErrTooFewTeams
		}
		size := NextPowerOfTwo(teamCount)
		slots := firstRound(size)
		for i := 1; i <= size-1; i++ {
			slots = append(slots, TemplateSlot{Slot: i, Stage: StageLoser, SeedA: -1, SeedB: -1})
		}
		return slots, nil
	case RoundRobin:
		slots := make([]TemplateSlot, 0, teamCount*(teamCount-1)/2)
		for i := 0; i < teamCount; i++ {
			for j := i + 1; j < teamCount; j++ {
				slots = append(slots, TemplateSlot{
					Slot:  roundRobinSlot(i, j, teamCount),
					Stage: StageNone,
					SeedA: i,
					SeedB: j,
				})
			}
		}
		return slots, nil
	default:
		return nil, ErrUnknownBracketType
	}
}

func firstRound(bracketSize int) []TemplateSlot {
	pairs := SeedOrder(bracketSize)
	slots := make([]TemplateSlot, 0, len(pairs))
	for i, pair := range pairs {
		slots = append(slots, TemplateSlot{
			Slot:  i + 1,
			Stage: StageWinner,
			SeedA: pair[0],
			SeedB: pair[1],
		})
	}
	return slots
}

// roundRobinSlot numbers the pair (i, j), i < j, in the order i ascending then
// j ascending: the pairs before row i number i*n - i*(i+1)/2.
func roundRobinSlot(i, j, n int) int {
	return i*n - i*(i+1)/2 + (j - i)
}

// SeedOrder pairs seeds for the first round so the top seeds meet as late as
// possible: 8 slots gives {0,7} {3,4} {1,6} {2,5}.
func SeedOrder(bracketSize int) [][2]int {
	if bracketSize < 2 {
		return [][2]int{}
	}

	rounds := []int{0}
	for len(rounds) < bracketSize {
		var nextRound []int
		currentCount := len(rounds) * 2

		for _, seed := range rounds {
			nextRound = append(nextRound, seed)
			nextRound = append(nextRound, (currentCount-1)-seed)
		}
		rounds = nextRound
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(rounds); i += 2 {
		pairs = append(pairs, [2]int{rounds[i], rounds[i+1]})
	}

	return pairs
}
