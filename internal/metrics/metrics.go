// Package metrics holds the Prometheus collectors for project sync.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons for NotificationsDropped.
const (
	ReasonStale        = "stale"
	ReasonForeignOwner = "foreign_owner"
	ReasonDuplicateID  = "duplicate_id"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	NotificationsApplied prometheus.Counter
	NotificationsDropped *prometheus.CounterVec
	SubscriptionErrors   prometheus.Counter
	ActiveSubscriptions  prometheus.Gauge
	Mutations            *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "projects",
			Subsystem: "sync",
			Name:      "notifications_applied_total",
			Help:      "Full-set notifications applied to a snapshot.",
		}),
		NotificationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projects",
			Subsystem: "sync",
			Name:      "notifications_dropped_total",
			Help:      "Notifications or records discarded before reaching a snapshot.",
		}, []string{"reason"}),
		SubscriptionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "projects",
			Subsystem: "sync",
			Name:      "subscription_errors_total",
			Help:      "Live feeds terminated by the store with an error.",
		}),
		ActiveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "projects",
			Subsystem: "sync",
			Name:      "active_subscriptions",
			Help:      "Subscriptions currently held by synchronizers.",
		}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projects",
			Subsystem: "gateway",
			Name:      "mutations_total",
			Help:      "Create and delete requests by outcome.",
		}, []string{"op", "result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.NotificationsApplied,
			m.NotificationsDropped,
			m.SubscriptionErrors,
			m.ActiveSubscriptions,
			m.Mutations,
		)
	}
	return m
}

func (m *Metrics) Applied() {
	if m != nil {
		m.NotificationsApplied.Inc()
	}
}

func (m *Metrics) Dropped(reason string, n int) {
	if m != nil && n > 0 {
		m.NotificationsDropped.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) SubscriptionFailed() {
	if m != nil {
		m.SubscriptionErrors.Inc()
	}
}

func (m *Metrics) SubscriptionOpened() {
	if m != nil {
		m.ActiveSubscriptions.Inc()
	}
}

func (m *Metrics) SubscriptionReleased() {
	if m != nil {
		m.ActiveSubscriptions.Dec()
	}
}

func (m *Metrics) Mutation(op, result string) {
	if m != nil {
		m.Mutations.WithLabelValues(op, result).Inc()
	}
}
