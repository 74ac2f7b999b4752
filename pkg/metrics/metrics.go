// Package metrics exposes Prometheus instrumentation for the
// reconciliation pipeline on the controller-runtime metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Outcome labels for reconciliation cycles.
const (
	OutcomeNoRecommendation = "no_recommendation"
	OutcomeNoOp             = "no_op"
	OutcomeSuccess          = "success"
	OutcomeError            = "error"
)

// Recorder counts reconciliation outcomes and git/review side effects.
type Recorder struct {
	cyclesTotal   *prometheus.CounterVec
	pushesTotal   prometheus.Counter
	prsCreated    prometheus.Counter
	cycleDuration prometheus.Histogram
}

// NewRecorder registers the operator metrics on the given registry.
func NewRecorder(registry prometheus.Registerer) *Recorder {
	factory := promauto.With(registry)

	return &Recorder{
		cyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vpa_recommender_reconcile_cycles_total",
				Help: "Reconciliation cycles by outcome.",
			},
			[]string{"outcome"},
		),
		pushesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vpa_recommender_branch_pushes_total",
				Help: "Force-pushes of the change branch.",
			},
		),
		prsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vpa_recommender_pull_requests_created_total",
				Help: "Review requests opened by the operator.",
			},
		),
		cycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vpa_recommender_cycle_duration_seconds",
				Help:    "End-to-end duration of a reconciliation cycle.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// NewDefaultRecorder registers on the controller-runtime global registry.
func NewDefaultRecorder() *Recorder {
	return NewRecorder(ctrlmetrics.Registry)
}

// CycleCompleted records one finished cycle.
func (r *Recorder) CycleCompleted(outcome string, durationSeconds float64) {
	r.cyclesTotal.WithLabelValues(outcome).Inc()
	r.cycleDuration.Observe(durationSeconds)
}

// BranchPushed records a completed force-push.
func (r *Recorder) BranchPushed() {
	r.pushesTotal.Inc()
}

// PullRequestCreated records a newly opened review request.
func (r *Recorder) PullRequestCreated() {
	r.prsCreated.Inc()
}
