// Package metrics provides Prometheus-based metrics recording for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the observation surface the retry client and orchestrator use.
type Recorder interface {
	// ObserveCall records one logical LLM call after retries resolve.
	ObserveCall(role, model, status, errorType string, attempts int, duration time.Duration)
	// IncRetry records one retried attempt.
	IncRetry(role, errorType string)
	// ObserveStage records a stage reaching a terminal status.
	ObserveStage(status string)
	// IncPreflight records a preflight probe outcome.
	IncPreflight(result string)
}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	callsTotal     *prometheus.CounterVec
	attemptsTotal  *prometheus.CounterVec
	retriesTotal   *prometheus.CounterVec
	callDuration   *prometheus.HistogramVec
	stagesTotal    *prometheus.CounterVec
	preflightTotal *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder registered on the default registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	return NewPrometheusRecorderWith(prometheus.DefaultRegisterer)
}

// NewPrometheusRecorderWith creates a recorder registered on the given
// registerer; tests pass a fresh registry to avoid duplicate registration.
func NewPrometheusRecorderWith(reg prometheus.Registerer) *PrometheusRecorder {
	f := promauto.With(reg)
	return &PrometheusRecorder{
		callsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_calls_total",
				Help: "Total number of logical LLM calls by role, model, status, and error type",
			},
			[]string{"role", "model", "status", "error_type"},
		),
		attemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_call_attempts_total",
				Help: "Total number of call attempts including retries",
			},
			[]string{"role", "model"},
		),
		retriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_retries_total",
				Help: "Total number of retried attempts by role and error type",
			},
			[]string{"role", "error_type"},
		),
		callDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_call_duration_seconds",
				Help:    "Duration of logical LLM calls including backoff waits",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"role", "model"},
		),
		stagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_stages_total",
				Help: "Total number of stages reaching each terminal status",
			},
			[]string{"status"},
		),
		preflightTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preflight_results_total",
				Help: "Total number of preflight probe outcomes",
			},
			[]string{"result"},
		),
	}
}

// ObserveCall implements Recorder.
func (p *PrometheusRecorder) ObserveCall(role, model, status, errorType string, attempts int, duration time.Duration) {
	p.callsTotal.WithLabelValues(role, model, status, errorType).Inc()
	p.attemptsTotal.WithLabelValues(role, model).Add(float64(attempts))
	p.callDuration.WithLabelValues(role, model).Observe(duration.Seconds())
}

// IncRetry implements Recorder.
func (p *PrometheusRecorder) IncRetry(role, errorType string) {
	p.retriesTotal.WithLabelValues(role, errorType).Inc()
}

// ObserveStage implements Recorder.
func (p *PrometheusRecorder) ObserveStage(status string) {
	p.stagesTotal.WithLabelValues(status).Inc()
}

// IncPreflight implements Recorder.
func (p *PrometheusRecorder) IncPreflight(result string) {
	p.preflightTotal.WithLabelValues(result).Inc()
}

// NopRecorder discards all observations.
type NopRecorder struct{}

// ObserveCall implements Recorder.
func (NopRecorder) ObserveCall(string, string, string, string, int, time.Duration) {}

// IncRetry implements Recorder.
func (NopRecorder) IncRetry(string, string) {}

// ObserveStage implements Recorder.
func (NopRecorder) ObserveStage(string) {}

// IncPreflight implements Recorder.
func (NopRecorder) IncPreflight(string) {}
