package metrics

import "github.com/prometheus/client_golang/prometheus"

// PushMetrics counts push delivery attempts by outcome and pruned
// subscriptions.
type PushMetrics struct {
	attempts *prometheus.CounterVec
	pruned   prometheus.Counter
}

// NewPushMetrics registers the push delivery metrics on the provided registerer.
func NewPushMetrics(reg prometheus.Registerer) *PushMetrics {
	if reg == nil {
		return &PushMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_delivery_attempts",
		Help: "Push delivery attempts by outcome (sent, transient, permanent, invalid).",
	}, []string{"outcome"})
	pruned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "push_subscriptions_pruned",
		Help: "Subscriptions removed after a permanent delivery failure.",
	})
	reg.MustRegister(attempts, pruned)
	return &PushMetrics{attempts: attempts, pruned: pruned}
}

// IncAttempt increments the attempt counter for an outcome label.
func (m *PushMetrics) IncAttempt(outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncPruned increments the pruned subscription counter.
func (m *PushMetrics) IncPruned() {
	if m == nil || m.pruned == nil {
		return
	}
	m.pruned.Inc()
}
