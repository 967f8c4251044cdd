package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const queueSize = 256

// Publisher is the part of an AMQP channel the notifier needs.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier queues notifications and publishes them from a single worker,
// routed by tournament id. A full queue drops the notification.
type AMQPNotifier struct {
	publisher Publisher
	exchange  string
	queue     chan Notification
	done      chan struct{}
}

func NewAMQPNotifier(publisher Publisher, exchange string) *AMQPNotifier {
	return &AMQPNotifier{
		publisher: publisher,
		exchange:  exchange,
		queue:     make(chan Notification, queueSize),
		done:      make(chan struct{}),
	}
}

func (a *AMQPNotifier) Notify(n Notification) {
	select {
	case a.queue <- n:
	default:
		zap.L().Warn("notification queue full, dropping",
			zap.Stringer("tournament_id", n.TournamentID),
			zap.Stringer("team_id", n.TeamID))
	}
}

// Run publishes queued notifications until ctx is cancelled, then drains what
// is left in the queue.
func (a *AMQPNotifier) Run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case n := <-a.queue:
			a.publish(n)
		case <-ctx.Done():
			for {
				select {
				case n := <-a.queue:
					a.publish(n)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (a *AMQPNotifier) Wait() {
	<-a.done
}

func (a *AMQPNotifier) publish(n Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		zap.L().Error("failed to encode notification", zap.Error(err))
		return
	}

	err = a.publisher.Publish(a.exchange, n.TournamentID.String(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		zap.L().Error("failed to publish notification",
			zap.String("exchange", a.exchange),
			zap.Stringer("tournament_id", n.TournamentID),
			zap.Error(err))
	}
}

// DialAMQP connects to the broker, retrying with backoff, and declares the
// notification exchange. The caller owns the returned connection.
func DialAMQP(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	zap.L().Info("connecting to rabbitmq")

	var conn *amqp.Connection
	wait := time.Second
	for attempt := 0; ; attempt++ {
		var err error
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		if attempt == 5 {
			return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		time.Sleep(wait)
		wait *= 2
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	zap.L().Info("connected to rabbitmq", zap.String("exchange", exchange))
	return conn, ch, nil
}
