package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProvisionAttempts counts provisioning runs by outcome
	// (success, conflict, config_error, external_error, error)
	ProvisionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenanthub_provision_attempts_total",
		Help: "Tenant provisioning attempts by outcome",
	}, []string{"outcome"})

	// BillingSyncRuns counts billing sync runs by outcome
	BillingSyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenanthub_billing_sync_runs_total",
		Help: "Billing sync runs by outcome",
	}, []string{"outcome"})

	// NotificationsPublished counts notification messages published
	// to the bus by kind
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenanthub_notifications_published_total",
		Help: "Notification messages published by kind",
	}, []string{"kind"})

	// NotificationsSent counts mails actually delivered or failed
	// by the notify subscriber
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenanthub_notifications_sent_total",
		Help: "Notification mails sent by result",
	}, []string{"result"})

	// TaskTransitions counts task status transitions by result
	// (applied, rejected)
	TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenanthub_task_transitions_total",
		Help: "Task status transitions by result",
	}, []string{"result"})
)
