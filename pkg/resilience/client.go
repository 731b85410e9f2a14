// Package resilience wraps a provider client with bounded retries and an
// explicit success/failure contract.
//
// Call never returns a Go error for an upstream failure: the result of one
// logical call is always a tagged envelope, so the orchestrator branches on
// the outcome tag instead of guessing whether an empty response means "no
// work" or "the call never happened".
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"conductor/pkg/backoff"
	"conductor/pkg/envelope"
	"conductor/pkg/llm"
	"conductor/pkg/llmerrors"
	"conductor/pkg/logx"
	"conductor/pkg/metrics"
	"conductor/pkg/utils"
)

// Config is the immutable retry configuration, fixed at construction.
type Config struct {
	MaxRetries     int           // Attempts per logical call, first included
	RequestTimeout time.Duration // Bound on one attempt, not the whole call
	InitialBackoff time.Duration // Delay after the first failed attempt
	MaxBackoff     time.Duration // Cap on the raw backoff component
	JitterFraction float64       // Uniform jitter up to raw*fraction
}

// DefaultConfig returns the standard retry settings.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     5,
		RequestTimeout: 180 * time.Second,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     60 * time.Second,
		JitterFraction: 0.5,
	}
}

// Validate rejects configurations that are programmer errors.
func (c Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial backoff must be positive, got %v", c.InitialBackoff)
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max backoff %v is below initial backoff %v", c.MaxBackoff, c.InitialBackoff)
	}
	if c.JitterFraction < 0 || c.JitterFraction > 1 {
		return fmt.Errorf("jitter fraction must be in [0, 1], got %v", c.JitterFraction)
	}
	return nil
}

// Client issues logical LLM calls with bounded retries.
type Client struct {
	llm      llm.Client
	cfg      Config
	policy   backoff.Policy
	logger   *logx.Logger
	recorder metrics.Recorder
	counter  *utils.TokenCounter
}

// New creates a resilient client. It returns an error only for invalid
// configuration.
func New(client llm.Client, cfg Config) (*Client, error) {
	return NewWithObservers(client, cfg, nil, nil)
}

// NewWithObservers creates a resilient client with logging and metrics.
func NewWithObservers(client llm.Client, cfg Config, logger *logx.Logger, recorder metrics.Recorder) (*Client, error) {
	if client == nil {
		return nil, errors.New("llm client cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	if logger == nil {
		logger = logx.NewLogger("resilience")
	}
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}

	counter, err := utils.NewTokenCounter()
	if err != nil {
		// Token counts degrade to character estimates; not fatal.
		logger.Warn("token counter unavailable: %v", err)
	}

	return &Client{
		llm: client,
		cfg: cfg,
		policy: backoff.Policy{
			Base:           cfg.InitialBackoff,
			Cap:            cfg.MaxBackoff,
			JitterFraction: cfg.JitterFraction,
		},
		logger:   logger,
		recorder: recorder,
		counter:  counter,
	}, nil
}

// Call issues one logical call for the given pipeline role and returns a
// tagged envelope. Transient upstream failures are retried with exponential
// backoff; a non-retryable error or retry exhaustion synthesizes a failure
// envelope. Cancellation during an attempt or a backoff sleep returns a
// cancelled failure envelope immediately.
func (c *Client) Call(ctx context.Context, role llm.AgentRole, systemPrompt, userContent string) envelope.Envelope {
	req := llm.NewCompletionRequest(systemPrompt, userContent)
	promptTokens := c.counter.CountTokens(systemPrompt) + c.counter.CountTokens(userContent)
	start := time.Now()

	var lastErr *llmerrors.Error

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		resp, err := c.llm.Complete(attemptCtx, req)
		cancel()

		if err == nil {
			findings := envelope.ParseFindings(resp.Content)
			c.logger.Debug("call succeeded: role=%s attempt=%d findings=%d", role, attempt, len(findings))
			c.recorder.ObserveCall(string(role), c.llm.ModelName(), "success", "", attempt, time.Since(start))
			notes := fmt.Sprintf("role=%s attempts=%d prompt_tokens~%d stop=%s",
				role, attempt, promptTokens, resp.StopReason)
			return envelope.Success(findings, notes)
		}

		// A cancelled parent context ends the call regardless of how the
		// provider surfaced the error.
		if ctx.Err() != nil {
			c.logger.Warn("call cancelled: role=%s attempt=%d", role, attempt)
			c.recorder.ObserveCall(string(role), c.llm.ModelName(), "cancelled", llmerrors.ErrorTypeCancelled.String(), attempt, time.Since(start))
			return envelope.Cancelled(fmt.Sprintf("cancelled during attempt %d: %v", attempt, ctx.Err()))
		}

		lastErr = llmerrors.Classify(err)
		c.logger.Debug("attempt failed: role=%s attempt=%d/%d type=%s err=%v",
			role, attempt, c.cfg.MaxRetries, lastErr.Type, err)

		if !lastErr.IsRetryable() || attempt == c.cfg.MaxRetries {
			break
		}

		c.recorder.IncRetry(string(role), lastErr.Type.String())
		delay := c.policy.Delay(attempt)
		select {
		case <-ctx.Done():
			c.logger.Warn("call cancelled during backoff: role=%s attempt=%d", role, attempt)
			c.recorder.ObserveCall(string(role), c.llm.ModelName(), "cancelled", llmerrors.ErrorTypeCancelled.String(), attempt, time.Since(start))
			return envelope.Cancelled(fmt.Sprintf("cancelled while waiting to retry attempt %d: %v", attempt+1, ctx.Err()))
		case <-time.After(delay):
		}
	}

	c.logger.Error("call failed: role=%s attempts=%d reason=%s", role, c.attemptsFor(lastErr), lastErr.Reason())
	c.recorder.ObserveCall(string(role), c.llm.ModelName(), "failure", lastErr.Type.String(), c.attemptsFor(lastErr), time.Since(start))

	env := envelope.FailureFromError(lastErr)
	env.RawNotes = fmt.Sprintf("role=%s attempts=%d prompt_tokens~%d elapsed=%s",
		role, c.attemptsFor(lastErr), promptTokens, time.Since(start).Round(time.Millisecond))
	return env
}

// attemptsFor reports how many attempts were actually issued: non-retryable
// errors stop after one, everything else runs the full budget.
func (c *Client) attemptsFor(err *llmerrors.Error) int {
	if err != nil && !err.IsRetryable() {
		return 1
	}
	return c.cfg.MaxRetries
}

// Config returns the client's immutable configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// ModelName reports the wrapped provider's model.
func (c *Client) ModelName() string {
	return c.llm.ModelName()
}
