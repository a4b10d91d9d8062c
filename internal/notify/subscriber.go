package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/tenant-hub/tenant-hub-server/internal/metrics"
)

// Subscriber consumes notification messages from the bus and delivers
// them via the mailer
type Subscriber struct {
	nc     *nats.Conn
	mailer *Mailer
	sub    *nats.Subscription
}

// NewSubscriber creates a notify subscriber
func NewSubscriber(nc *nats.Conn, mailer *Mailer) *Subscriber {
	return &Subscriber{
		nc:     nc,
		mailer: mailer,
	}
}

// Start subscribes to the notification subject and blocks until the
// context is cancelled
func (s *Subscriber) Start(ctx context.Context) error {
	sub, err := s.nc.Subscribe(SubjectEmail, s.handleEmail)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectEmail, err)
	}
	s.sub = sub

	log.Info().Str("subject", SubjectEmail).Msg("Notify subscriber started")

	<-ctx.Done()

	s.sub.Unsubscribe()

	return ctx.Err()
}

func (s *Subscriber) handleEmail(msg *nats.Msg) {
	var notification Message
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Error().Err(err).Msg("Failed to decode notification message")
		return
	}

	if err := s.mailer.SendMail(notification.Recipients, notification.Subject, notification.Body); err != nil {
		metrics.NotificationsSent.WithLabelValues("error").Inc()
		log.Error().
			Err(err).
			Str("kind", notification.Kind).
			Str("subject", notification.Subject).
			Msg("Failed to send notification mail")
		return
	}

	metrics.NotificationsSent.WithLabelValues("success").Inc()
}
