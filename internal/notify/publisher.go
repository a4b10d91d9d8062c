package notify

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/tenant-hub/tenant-hub-server/internal/metrics"
)

// SubjectEmail is the bus subject notification mails are published on
const SubjectEmail = "notify.email"

// NATSPublisher publishes notifications to the message bus. Delivery
// happens out of process in the notify subscriber, so a slow or
// failing mail server never blocks provisioning or task updates.
type NATSPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher creates a bus-backed notifier
func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

// Send publishes a notification message. Errors are logged, never
// returned.
func (p *NATSPublisher) Send(kind string, recipients []string, subject, body string) {
	if len(recipients) == 0 {
		return
	}

	msg := Message{
		Kind:       kind,
		Recipients: recipients,
		Subject:    subject,
		Body:       body,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("Failed to marshal notification")
		return
	}

	if err := p.nc.Publish(SubjectEmail, data); err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("Failed to publish notification")
		return
	}

	metrics.NotificationsPublished.WithLabelValues(kind).Inc()

	log.Debug().
		Str("kind", kind).
		Int("recipients", len(recipients)).
		Str("subject", subject).
		Msg("Notification published")
}
