// Package metrics holds the prometheus collectors for bracket generation and
// match progression.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fedbrackets"

// Recorder is safe to use as a nil pointer, in which case nothing is recorded.
type Recorder struct {
	generated          *prometheus.CounterVec
	generationFailures *prometheus.CounterVec
	results            *prometheus.CounterVec
	resets             prometheus.Counter
	grandFinalResets   prometheus.Counter
}

// NewRecorder creates the collectors and registers them on reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		generated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "brackets_generated_total",
			Help:      "Brackets generated, by event format.",
		}, []string{"format"}),
		generationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bracket_generation_failures_total",
			Help:      "Rejected or failed bracket generations, by reason.",
		}, []string{"reason"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_results_total",
			Help:      "Match results recorded, by bracket side.",
		}, []string{"side"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bracket_resets_total",
			Help:      "Brackets deleted so they can be generated again.",
		}),
		grandFinalResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grand_final_resets_total",
			Help:      "Grand final reset matches created on demand.",
		}),
	}

	reg.MustRegister(r.generated, r.generationFailures, r.results, r.resets, r.grandFinalResets)
	return r
}

func (r *Recorder) BracketGenerated(format string) {
	if r == nil {
		return
	}
	r.generated.WithLabelValues(format).Inc()
}

func (r *Recorder) GenerationFailed(reason string) {
	if r == nil {
		return
	}
	r.generationFailures.WithLabelValues(reason).Inc()
}

func (r *Recorder) ResultRecorded(side string) {
	if r == nil {
		return
	}
	r.results.WithLabelValues(side).Inc()
}

func (r *Recorder) BracketReset() {
	if r == nil {
		return
	}
	r.resets.Inc()
}

func (r *Recorder) GrandFinalReset() {
	if r == nil {
		return
	}
	r.grandFinalResets.Inc()
}
