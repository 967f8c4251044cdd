package notify

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification is sent to a team when something that concerns it changes.
type Notification struct {
	TournamentID uuid.UUID `json:"tournament_id"`
	TeamID       uuid.UUID `json:"team_id"`
	Message      string    `json:"message"`
	Link         string    `json:"link"`
}

// Notifier delivers notifications on a best-effort basis. Notify must not
// block the caller and a failed delivery is never reported back.
type Notifier interface {
	Notify(n Notification)
}

type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	zap.L().Info("notification",
		zap.Stringer("tournament_id", n.TournamentID),
		zap.Stringer("team_id", n.TeamID),
		zap.String("message", n.Message),
		zap.String("link", n.Link),
	)
}

type discard struct{}

func (discard) Notify(Notification) {}

// Discard drops every notification.
var Discard Notifier = discard{}

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, notifier := range m {
		notifier.Notify(n)
	}
}
