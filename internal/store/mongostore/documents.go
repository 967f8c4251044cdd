package mongostore

import (
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
	"github.com/google/uuid"
)

type phaseDoc struct {
	Index       int    `bson:"index"`
	BracketType string `bson:"bracket_type"`
	Status      string `bson:"status"`
}

// Approved keeps approval order; a team id is never in both lists.
type tournamentDoc struct {
	ID              string     `bson:"_id"`
	OrganizerID     string     `bson:"organizer_id"`
	Name            string     `bson:"name"`
	Description     *string    `bson:"description"`
	MaxParticipants int        `bson:"max_participants"`
	Status          string     `bson:"status"`
	CreatedAt       time.Time  `bson:"created_at"`
	Phases          []phaseDoc `bson:"phases"`
	Approved        []string   `bson:"approved"`
	Pending         []string   `bson:"pending"`
	Referees        []string   `bson:"referees"`
}

type matchDoc struct {
	ID           string     `bson:"_id"`
	TournamentID string     `bson:"tournament_id"`
	PhaseIndex   int        `bson:"phase_index"`
	Stage        string     `bson:"stage"`
	Slot         int        `bson:"slot"`
	TeamA        *string    `bson:"team_a"`
	TeamB        *string    `bson:"team_b"`
	ScoreA       *int       `bson:"score_a"`
	ScoreB       *int       `bson:"score_b"`
	Winner       *string    `bson:"winner"`
	Status       string     `bson:"status"`
	ScheduledAt  *time.Time `bson:"scheduled_at"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func newTournamentDoc(t *bracket.Tournament) tournamentDoc {
	doc := tournamentDoc{
		ID:              t.ID.String(),
		OrganizerID:     t.OrganizerID.String(),
		Name:            t.Name,
		Description:     t.Description,
		MaxParticipants: t.MaxParticipants,
		Status:          string(t.Status),
		CreatedAt:       t.CreatedAt,
		Approved:        utils.IDStrings(t.Teams),
		Pending:         utils.IDStrings(t.PendingTeams),
		Referees:        utils.IDStrings(t.Referees),
	}
	for _, p := range t.Phases {
		doc.Phases = append(doc.Phases, phaseDoc{
			Index:       p.Index,
			BracketType: string(p.BracketType),
			Status:      string(p.Status),
		})
	}
	return doc
}

func (d tournamentDoc) toTournament() (*bracket.Tournament, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	organizerID, err := uuid.Parse(d.OrganizerID)
	if err != nil {
		return nil, err
	}

	t := &bracket.Tournament{
		ID:              id,
		OrganizerID:     organizerID,
		Name:            d.Name,
		Description:     d.Description,
		MaxParticipants: d.MaxParticipants,
		Status:          bracket.TournamentStatus(d.Status),
		CreatedAt:       d.CreatedAt,
	}
	for _, p := range d.Phases {
		t.Phases = append(t.Phases, bracket.Phase{
			TournamentID: id,
			Index:        p.Index,
			BracketType:  bracket.BracketType(p.BracketType),
			Status:       bracket.PhaseStatus(p.Status),
		})
	}
	if t.Teams, err = utils.ParseIDs(d.Approved); err != nil {
		return nil, err
	}
	if t.PendingTeams, err = utils.ParseIDs(d.Pending); err != nil {
		return nil, err
	}
	if t.Referees, err = utils.ParseIDs(d.Referees); err != nil {
		return nil, err
	}
	return t, nil
}

func newMatchDoc(m *bracket.Match) matchDoc {
	return matchDoc{
		ID:           m.ID.String(),
		TournamentID: m.TournamentID.String(),
		PhaseIndex:   m.PhaseIndex,
		Stage:        string(m.Stage),
		Slot:         m.Slot,
		TeamA:        utils.IDString(m.TeamA),
		TeamB:        utils.IDString(m.TeamB),
		ScoreA:       m.ScoreA,
		ScoreB:       m.ScoreB,
		Winner:       utils.IDString(m.Winner),
		Status:       string(m.Status),
		ScheduledAt:  m.ScheduledAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (d matchDoc) toMatch() (*bracket.Match, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	tournamentID, err := uuid.Parse(d.TournamentID)
	if err != nil {
		return nil, err
	}

	m := &bracket.Match{
		ID:           id,
		TournamentID: tournamentID,
		PhaseIndex:   d.PhaseIndex,
		Stage:        bracket.Stage(d.Stage),
		Slot:         d.Slot,
		ScoreA:       d.ScoreA,
		ScoreB:       d.ScoreB,
		Status:       bracket.MatchStatus(d.Status),
		ScheduledAt:  d.ScheduledAt,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if m.TeamA, err = utils.ParseID(d.TeamA); err != nil {
		return nil, err
	}
	if m.TeamB, err = utils.ParseID(d.TeamB); err != nil {
		return nil, err
	}
	if m.Winner, err = utils.ParseID(d.Winner); err != nil {
		return nil, err
	}
	return m, nil
}
