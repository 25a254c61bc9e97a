package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "crm"

// LeadMetrics counts lead lifecycle outcomes and access denials.
type LeadMetrics struct {
	created     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	conflicts   prometheus.Counter
	denials     *prometheus.CounterVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	if reg == nil {
		return &LeadMetrics{}
	}
	m := &LeadMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_created_total",
			Help:      "Leads created by intake channel.",
		}, []string{"channel"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_transitions_total",
			Help:      "Applied lead status transitions.",
		}, []string{"from", "to"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_transition_conflicts_total",
			Help:      "Transitions rejected by the optimistic version check.",
		}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_denials_total",
			Help:      "Requests denied by the access evaluator.",
		}, []string{"action", "resource"}),
	}
	reg.MustRegister(m.created, m.transitions, m.conflicts, m.denials)
	return m
}

func (m *LeadMetrics) IncCreated(channel string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(channel)).Inc()
}

func (m *LeadMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *LeadMetrics) IncConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *LeadMetrics) IncDenial(action, resource string) {
	if m == nil || m.denials == nil {
		return
	}
	m.denials.WithLabelValues(normalizeLabel(action), normalizeLabel(resource)).Inc()
}
