package notify

import (
	"github.com/rs/zerolog/log"
)

// Notifier delivers a notification to a set of recipients. Sends are
// fire and forget: callers never fail their own work on a delivery
// error.
type Notifier interface {
	Send(kind string, recipients []string, subject, body string)
}

// Notification kinds published on the bus
const (
	KindTenantProvisioned = "tenant_provisioned"
	KindTaskStatus        = "task_status"
	KindProjectCompleted  = "project_completed"
)

// Message is the notification payload carried over the bus
type Message struct {
	Kind       string   `json:"kind"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

// Discard drops every notification. Used when no message bus is
// configured.
type Discard struct{}

func (Discard) Send(kind string, recipients []string, subject, body string) {
	log.Warn().
		Str("kind", kind).
		Str("subject", subject).
		Msg("No notifier configured, dropping notification")
}
