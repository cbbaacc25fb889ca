// Package metrics exposes decision-cycle counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

// Advisor outcome labels.
const (
	AdvisorOK        = "ok"
	AdvisorError     = "error"
	AdvisorMalformed = "malformed"
	AdvisorDisabled  = "disabled"
	AdvisorTimeout   = "timeout"
)

// Recorder implements the pipeline's metrics sink using Prometheus.
type Recorder struct {
	registry *prometheus.Registry

	decisions       *prometheus.CounterVec
	breakerTrips    *prometheus.CounterVec
	advisorOutcomes *prometheus.CounterVec
	fetchErrors     *prometheus.CounterVec
	percentile      *prometheus.GaugeVec
	runDuration     *prometheus.HistogramVec
	advisorBreaker  prometheus.Gauge
}

// New creates a recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundpilot_decisions_total",
				Help: "Final decisions by action and merge method",
			},
			[]string{"final", "method"},
		),
		breakerTrips: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundpilot_circuit_breaker_trips_total",
				Help: "Evaluations halted by the daily-move circuit breaker",
			},
			[]string{"class"},
		),
		advisorOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundpilot_advisor_outcomes_total",
				Help: "Advisor calls by outcome",
			},
			[]string{"outcome"},
		),
		fetchErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundpilot_fetch_errors_total",
				Help: "Data source failures",
			},
			[]string{"source"},
		),
		percentile: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fundpilot_percentile_250",
				Help: "Latest 250-day percentile per fund",
			},
			[]string{"fund"},
		),
		runDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundpilot_run_duration_seconds",
				Help:    "Duration of decision and alert runs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		advisorBreaker: f.NewGauge(prometheus.GaugeOpts{
			Name: "fundpilot_advisor_breaker_state",
			Help: "Advisor circuit breaker state (0 closed, 1 half-open, 2 open)",
		}),
	}
}

// RecordDecision counts a final decision.
func (r *Recorder) RecordDecision(final, method string) {
	r.decisions.WithLabelValues(final, method).Inc()
}

// RecordBreakerTrip counts a halted evaluation.
func (r *Recorder) RecordBreakerTrip(class string) {
	r.breakerTrips.WithLabelValues(class).Inc()
}

// RecordAdvisor counts an advisor outcome.
func (r *Recorder) RecordAdvisor(outcome string) {
	r.advisorOutcomes.WithLabelValues(outcome).Inc()
}

// RecordFetchError counts a data source failure.
func (r *Recorder) RecordFetchError(source string) {
	r.fetchErrors.WithLabelValues(source).Inc()
}

// RecordPercentile stores the latest 250-day percentile of a fund.
func (r *Recorder) RecordPercentile(fund string, p float64) {
	r.percentile.WithLabelValues(fund).Set(p)
}

// ObserveRun records how long a run took.
func (r *Recorder) ObserveRun(kind string, d time.Duration) {
	r.runDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordAdvisorBreaker tracks the advisor breaker state. It matches the
// advisor's OnStateChange hook.
func (r *Recorder) RecordAdvisorBreaker(_, to gobreaker.State) {
	r.advisorBreaker.Set(float64(to))
}

// Handler serves the registry in the exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
