// Package preflight provides pre-run connectivity validation.
// It issues one minimal completion against the configured provider and
// classifies the outcome so operators get an actionable verdict before a
// long pipeline run starts burning stages.
package preflight

import (
	"context"
	"time"

	"conductor/pkg/llm"
	"conductor/pkg/llmerrors"
	"conductor/pkg/logx"
)

// Classification describes why a probe failed, or that it did not.
type Classification string

// Classification constants for probe outcomes.
const (
	ClassificationOK           Classification = "ok"
	ClassificationUnauthorized Classification = "unauthorized"
	ClassificationRateLimited  Classification = "rate_limited"
	ClassificationUnavailable  Classification = "unavailable"
	ClassificationNetworkError Classification = "network_error"
	ClassificationUnknown      Classification = "unknown"
)

// DefaultProbeTimeout bounds the single probe request. The probe asks for
// one token, so anything slower than this indicates a problem worth
// surfacing before the run.
const DefaultProbeTimeout = 10 * time.Second

// Result is the outcome of a connectivity probe.
type Result struct {
	Reachable      bool
	Classification Classification
	Message        string
}

// Prober issues minimal completions to verify a provider is reachable and
// the credential is accepted.
type Prober struct {
	client     llm.Client
	credential string
	timeout    time.Duration
	logger     *logx.Logger
}

// NewProber creates a connectivity prober. credential is the API key the
// client was built with; an empty credential short-circuits the probe
// without any network traffic. Pass llm.NoCredentialRequired for providers
// that authenticate some other way (local Ollama).
func NewProber(client llm.Client, credential string) *Prober {
	return &Prober{
		client:     client,
		credential: credential,
		timeout:    DefaultProbeTimeout,
		logger:     logx.NewLogger("preflight"),
	}
}

// WithTimeout overrides the probe timeout.
func (p *Prober) WithTimeout(timeout time.Duration) *Prober {
	if timeout > 0 {
		p.timeout = timeout
	}
	return p
}

// Probe issues one minimal completion and classifies the outcome.
// A missing credential is reported as unauthorized without issuing any
// network call, so a misconfigured environment fails in microseconds
// rather than after a connection timeout.
func (p *Prober) Probe(ctx context.Context) Result {
	if p.credential == "" {
		p.logger.Warn("probe skipped: no credential configured for model %s", p.client.ModelName())
		return Result{
			Reachable:      false,
			Classification: ClassificationUnauthorized,
			Message:        "no API credential configured",
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.client.Complete(probeCtx, llm.ProbeRequest())
	if err == nil {
		p.logger.Info("probe passed: model=%s", p.client.ModelName())
		return Result{
			Reachable:      true,
			Classification: ClassificationOK,
			Message:        "provider reachable and credential accepted",
		}
	}

	classified := llmerrors.Classify(err)
	result := Result{
		Reachable:      false,
		Classification: classify(classified),
		Message:        classified.Reason(),
	}
	p.logger.Warn("probe failed: model=%s classification=%s reason=%s",
		p.client.ModelName(), result.Classification, result.Message)
	return result
}

// classify maps a classified provider error to a probe verdict.
func classify(err *llmerrors.Error) Classification {
	switch err.Type {
	case llmerrors.ErrorTypeAuth:
		return ClassificationUnauthorized
	case llmerrors.ErrorTypeRateLimit:
		return ClassificationRateLimited
	case llmerrors.ErrorTypeTransient:
		// A status code means the provider answered; no status means the
		// request never completed.
		if err.StatusCode >= 500 {
			return ClassificationUnavailable
		}
		return ClassificationNetworkError
	default:
		return ClassificationUnknown
	}
}
