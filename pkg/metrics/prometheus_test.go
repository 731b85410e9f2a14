package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorderWith(reg)

	rec.ObserveCall("manager", "claude-sonnet-4-5", "success", "", 1, 2*time.Second)
	rec.ObserveCall("employee", "claude-sonnet-4-5", "failure", "transient", 5, 90*time.Second)
	rec.IncRetry("employee", "transient")
	rec.IncRetry("employee", "transient")
	rec.ObserveStage("completed")
	rec.ObserveStage("llm_failure")
	rec.IncPreflight("ok")

	assert.Equal(t, float64(1), testutil.ToFloat64(
		rec.callsTotal.WithLabelValues("manager", "claude-sonnet-4-5", "success", "")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		rec.callsTotal.WithLabelValues("employee", "claude-sonnet-4-5", "failure", "transient")))
	assert.Equal(t, float64(5), testutil.ToFloat64(
		rec.attemptsTotal.WithLabelValues("employee", "claude-sonnet-4-5")))
	assert.Equal(t, float64(2), testutil.ToFloat64(
		rec.retriesTotal.WithLabelValues("employee", "transient")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		rec.stagesTotal.WithLabelValues("completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		rec.stagesTotal.WithLabelValues("llm_failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		rec.preflightTotal.WithLabelValues("ok")))
}

func TestNopRecorderIsSafe(t *testing.T) {
	var rec Recorder = NopRecorder{}

	rec.ObserveCall("manager", "m", "success", "", 1, time.Second)
	rec.IncRetry("manager", "transient")
	rec.ObserveStage("completed")
	rec.IncPreflight("ok")
}
