package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func positionField(pos bracket.Position) (string, error) {
	switch pos {
	case bracket.PositionA:
		return "team_a", nil
	case bracket.PositionB:
		return "team_b", nil
	default:
		return "", bracket.ErrInvalidPosition
	}
}

func slotFilter(tournamentID uuid.UUID, phaseIndex int, stage bracket.Stage, slot int) bson.M {
	return bson.M{
		"tournament_id": tournamentID.String(),
		"phase_index":   phaseIndex,
		"stage":         string(stage),
		"slot":          slot,
	}
}

func (s *Store) CreateMatches(ctx context.Context, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(matches))
	for i := range matches {
		if matches[i].ID == uuid.Nil {
			matches[i].ID = uuid.New()
		}
		if matches[i].Status == "" {
			matches[i].Status = bracket.MatchPending
		}
		matches[i].CreatedAt = now
		matches[i].UpdatedAt = now
		docs = append(docs, newMatchDoc(&matches[i]))
	}

	if _, err := s.matches.InsertMany(s.bind(ctx), docs); err != nil {
		return fmt.Errorf("failed to insert matches: %w", err)
	}
	return nil
}

func (s *Store) findMatch(ctx context.Context, filter bson.M) (*bracket.Match, error) {
	var doc matchDoc
	if err := s.matches.FindOne(s.bind(ctx), filter).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.toMatch()
}

func (s *Store) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	match, err := s.findMatch(ctx, bson.M{"_id": id.String()})
	if isNoDocuments(err) {
		return nil, fmt.Errorf("%w %s", bracket.ErrMatchNotFound, id)
	}
	return match, err
}

func (s *Store) ListMatches(ctx context.Context, tournamentID uuid.UUID, phaseIndex int) ([]bracket.Match, error) {
	ctx = s.bind(ctx)
	// "winner" sorts after "loser" and round robin has a single empty stage
	cursor, err := s.matches.Find(ctx,
		bson.M{"tournament_id": tournamentID.String(), "phase_index": phaseIndex},
		options.Find().SetSort(bson.D{{Key: "stage", Value: -1}, {Key: "slot", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var matches []bracket.Match
	for cursor.Next(ctx) {
		var doc matchDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		m, err := doc.toMatch()
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, cursor.Err()
}

// AssignSlot reads the slot and settles the compare-and-set before writing,
// because a failed write aborts the surrounding transaction and nothing can be
// read afterwards. The write itself is still a filtered upsert: if another
// writer changed the slot in between, the filter misses, the insert half hits
// the unique slot index and the race surfaces as a duplicate key.
func (s *Store) AssignSlot(ctx context.Context, a store.SlotAssignment) (*bracket.Match, error) {
	field, err := positionField(a.Position)
	if err != nil {
		return nil, err
	}
	other, _ := positionField(a.Position.Other())

	slot := slotFilter(a.TournamentID, a.PhaseIndex, a.Stage, a.Slot)
	existing, err := s.findMatch(ctx, slot)
	switch {
	case isNoDocuments(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read slot: %w", err)
	default:
		if err := checkAssignable(existing, a); err != nil {
			return nil, err
		}
	}

	team := a.TeamID.String()
	accepted := bson.A{bson.M{field: nil}, bson.M{field: team}}
	if a.Replace != nil {
		accepted = append(accepted, bson.M{field: a.Replace.String()})
	}

	filter := slotFilter(a.TournamentID, a.PhaseIndex, a.Stage, a.Slot)
	filter["status"] = bson.M{"$ne": string(bracket.MatchCompleted)}
	filter["$or"] = accepted

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{field: team, "updated_at": now},
		"$setOnInsert": bson.M{
			"_id":          uuid.New().String(),
			"status":       string(bracket.MatchPending),
			other:          nil,
			"score_a":      nil,
			"score_b":      nil,
			"winner":       nil,
			"scheduled_at": nil,
			"created_at":   now,
		},
	}

	_, err = s.matches.UpdateOne(s.bind(ctx), filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		if s.sc != nil {
			// the transaction is already aborted, so the slot cannot be re-read
			return nil, slotTaken(a)
		}
		current, findErr := s.findMatch(ctx, slot)
		if findErr != nil {
			return nil, findErr
		}
		if err := checkAssignable(current, a); err != nil {
			return nil, err
		}
		return nil, slotTaken(a)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to assign slot: %w", err)
	}

	match, err := s.findMatch(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("failed to read assigned slot: %w", err)
	}
	return match, nil
}

// checkAssignable applies the compare-and-set rule to the match currently in
// the slot.
func checkAssignable(m *bracket.Match, a store.SlotAssignment) error {
	if m.IsCompleted() {
		return bracket.ErrMatchCompleted
	}
	current := m.TeamAt(a.Position)
	if current == nil || *current == a.TeamID {
		return nil
	}
	if a.Replace != nil && *current == *a.Replace {
		return nil
	}
	return slotTaken(a)
}

func slotTaken(a store.SlotAssignment) error {
	return fmt.Errorf("%w: phase %d %s slot %d position %s", bracket.ErrSlotTaken, a.PhaseIndex, a.Stage, a.Slot, a.Position)
}

func (s *Store) SaveMatchResult(ctx context.Context, m *bracket.Match) error {
	m.UpdatedAt = time.Now().UTC()
	return s.updateOpenMatch(ctx, m.ID, bson.M{
		"score_a":    m.ScoreA,
		"score_b":    m.ScoreB,
		"winner":     utils.IDString(m.Winner),
		"status":     string(m.Status),
		"updated_at": m.UpdatedAt,
	})
}

func (s *Store) ScheduleMatch(ctx context.Context, m *bracket.Match) error {
	m.UpdatedAt = time.Now().UTC()
	return s.updateOpenMatch(ctx, m.ID, bson.M{
		"scheduled_at": m.ScheduledAt,
		"status":       string(m.Status),
		"updated_at":   m.UpdatedAt,
	})
}

func (s *Store) updateOpenMatch(ctx context.Context, id uuid.UUID, set bson.M) error {
	res, err := s.matches.UpdateOne(s.bind(ctx),
		bson.M{"_id": id.String(), "status": bson.M{"$ne": string(bracket.MatchCompleted)}},
		bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.GetMatch(ctx, id); err != nil {
		return err
	}
	return bracket.ErrMatchCompleted
}
