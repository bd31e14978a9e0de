package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "call_sessions_active",
		Help: "Number of call sessions currently tracked in the active-call index",
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Provider webhook events received, by endpoint",
	}, []string{"endpoint"})

	CorrelationMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "correlation_misses_total",
		Help: "Webhook events discarded because no owning account could be resolved",
	})

	StaleTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stale_transitions_total",
		Help: "Call status events ignored by the forward-only transition guard",
	})

	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlements_total",
		Help: "Billing settlements applied, by outcome",
	}, []string{"outcome"})

	VoicemailOrphans = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicemail_orphaned_durations_total",
		Help: "Recording-status events discarded after the reconciliation window",
	})
)
