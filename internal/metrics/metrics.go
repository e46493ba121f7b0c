package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters the workflow engine reports into. A nil
// *Metrics is valid and records nothing, which keeps tests and the CLI free
// of a registry.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Conflicts   prometheus.Counter
}

// New registers the workflow counters on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Transitions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "pariharam",
			Name:      "workflow_transitions_total",
			Help:      "Consultation workflow transitions by verb and outcome.",
		}, []string{"verb", "outcome"}),
		Conflicts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "pariharam",
			Name:      "workflow_assignment_conflicts_total",
			Help:      "Assignment compare-and-set updates lost to a concurrent writer.",
		}),
	}
}

// Transition records one workflow verb attempt.
func (m *Metrics) Transition(verb, outcome string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(verb, outcome).Inc()
}

// Conflict records a lost compare-and-set race.
func (m *Metrics) Conflict() {
	if m == nil {
		return
	}
	m.Conflicts.Inc()
}
