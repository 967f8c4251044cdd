// Package mongostore keeps tournaments and matches in MongoDB. Tournaments are
// single documents holding their phases and registrations; matches live in
// their own collection keyed by (tournament, phase, stage, slot).
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	tournamentsCollection = "tournaments"
	matchesCollection     = "matches"
)

type Store struct {
	client      *mongo.Client
	tournaments *mongo.Collection
	matches     *mongo.Collection

	// set while running inside WithTx
	sc mongo.SessionContext
}

var _ store.Store = (*Store)(nil)

// New opens the collections and makes sure the indexes the store relies on
// exist. The unique slot index is what turns AssignSlot into a compare-and-set.
func New(ctx context.Context, client *mongo.Client, database string) (*Store, error) {
	db := client.Database(database)
	s := &Store{
		client:      client,
		tournaments: db.Collection(tournamentsCollection),
		matches:     db.Collection(matchesCollection),
	}

	_, err := s.matches.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tournament_id", Value: 1}, {Key: "phase_index", Value: 1}, {Key: "stage", Value: 1}, {Key: "slot", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create match indexes: %w", err)
	}

	_, err = s.tournaments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "organizer_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament indexes: %w", err)
	}

	zap.L().Info("mongo store ready", zap.String("database", database))
	return s, nil
}

// bind swaps ctx for the transaction's session context when inside WithTx.
// The session context derives from the context WithTx was called with.
func (s *Store) bind(ctx context.Context) context.Context {
	if s.sc == nil {
		return ctx
	}
	return s.sc
}

func (s *Store) CreateTournament(ctx context.Context, t *bracket.Tournament) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	for i := range t.Phases {
		t.Phases[i].TournamentID = t.ID
		t.Phases[i].Index = i
	}
	if _, err := s.tournaments.InsertOne(s.bind(ctx), newTournamentDoc(t)); err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

func (s *Store) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	var doc tournamentDoc
	err := s.tournaments.FindOne(s.bind(ctx), bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%w %s", bracket.ErrTournamentNotFound, id)
		}
		return nil, err
	}
	return doc.toTournament()
}

func (s *Store) ListTournamentsByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]bracket.Tournament, error) {
	ctx = s.bind(ctx)
	cursor, err := s.tournaments.Find(ctx, bson.M{"organizer_id": organizerID.String()},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tournaments []bracket.Tournament
	for cursor.Next(ctx) {
		var doc tournamentDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		t, err := doc.toTournament()
		if err != nil {
			return nil, err
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, cursor.Err()
}

func (s *Store) GetPhase(ctx context.Context, tournamentID uuid.UUID, index int) (*bracket.Phase, error) {
	t, err := s.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	phase, err := t.Phase(index)
	if err != nil {
		return nil, fmt.Errorf("%w %d", bracket.ErrPhaseNotFound, index)
	}
	return phase, nil
}

func (s *Store) SetTournamentStatus(ctx context.Context, id uuid.UUID, from, to bracket.TournamentStatus) error {
	res, err := s.tournaments.UpdateOne(s.bind(ctx),
		bson.M{"_id": id.String(), "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to)}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: tournament %s is no longer %s", bracket.ErrConflict, id, from)
	}
	return nil
}

func (s *Store) SetPhaseStatus(ctx context.Context, id uuid.UUID, index int, from, to bracket.PhaseStatus) error {
	res, err := s.tournaments.UpdateOne(s.bind(ctx),
		bson.M{"_id": id.String(), "phases": bson.M{"$elemMatch": bson.M{"index": index, "status": string(from)}}},
		bson.M{"$set": bson.M{"phases.$.status": string(to)}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: phase %d is no longer %s", bracket.ErrConflict, index, from)
	}
	return nil
}

func (s *Store) AddPendingTeam(ctx context.Context, id, teamID uuid.UUID) error {
	team := teamID.String()
	res, err := s.tournaments.UpdateOne(s.bind(ctx),
		bson.M{"_id": id.String(), "pending": bson.M{"$ne": team}, "approved": bson.M{"$ne": team}},
		bson.M{"$push": bson.M{"pending": team}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetTournament(ctx, id); err != nil {
			return err
		}
		return bracket.ErrTeamRegistered
	}
	return nil
}

func (s *Store) ApproveTeam(ctx context.Context, id, teamID uuid.UUID) error {
	team := teamID.String()
	res, err := s.tournaments.UpdateOne(s.bind(ctx),
		bson.M{"_id": id.String(), "pending": team},
		bson.M{"$pull": bson.M{"pending": team}, "$push": bson.M{"approved": team}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return bracket.ErrTeamNotFound
	}
	return nil
}

func (s *Store) RemoveTeam(ctx context.Context, id, teamID uuid.UUID) error {
	team := teamID.String()
	res, err := s.tournaments.UpdateOne(s.bind(ctx),
		bson.M{"_id": id.String(), "$or": bson.A{bson.M{"pending": team}, bson.M{"approved": team}}},
		bson.M{"$pull": bson.M{"pending": team, "approved": team}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return bracket.ErrTeamNotFound
	}
	return nil
}

func (s *Store) AddReferee(ctx context.Context, id, refereeID uuid.UUID) error {
	res, err := s.tournaments.UpdateOne(s.bind(ctx),
		bson.M{"_id": id.String()},
		bson.M{"$addToSet": bson.M{"referees": refereeID.String()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w %s", bracket.ErrTournamentNotFound, id)
	}
	return nil
}

// WithTx runs fn inside a multi-document transaction. The server needs to be
// part of a replica set for this to work.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	if s.sc != nil {
		return fn(s)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		tx := &Store{
			client:      s.client,
			tournaments: s.tournaments,
			matches:     s.matches,
			sc:          sc,
		}
		return nil, fn(tx)
	})
	return err
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
