package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conductor/internal/mocks"
	"conductor/pkg/llm"
	"conductor/pkg/llmerrors"
)

// fastConfig keeps retry tests quick while exercising the real loop.
func fastConfig(maxRetries int) Config {
	return Config{
		MaxRetries:     maxRetries,
		RequestTimeout: 5 * time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		JitterFraction: 0,
	}
}

func TestCallSucceedsFirstAttempt(t *testing.T) {
	mock := mocks.NewMockLLMClient("test-model")
	mock.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{
			Content:    `{"findings":[{"summary":"step one"}]}`,
			StopReason: "end_turn",
		}, nil
	})

	client, err := New(mock, fastConfig(5))
	require.NoError(t, err)

	env := client.Call(context.Background(), llm.RoleManager, "system", "plan this")
	assert.True(t, env.IsSuccess())
	require.Len(t, env.Findings, 1)
	assert.Equal(t, "step one", env.Findings[0].Summary)
	assert.Equal(t, 1, mock.CallCount())
}

func TestCallRetriesTransientThenSucceeds(t *testing.T) {
	mock := mocks.NewMockLLMClient("test-model")
	calls := 0
	mock.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		calls++
		if calls < 3 {
			return llm.CompletionResponse{}, llmerrors.NewWithStatus(llmerrors.ErrorTypeTransient, 503, "server error")
		}
		return llm.CompletionResponse{Content: "[]", StopReason: "end_turn"}, nil
	})

	client, err := New(mock, fastConfig(5))
	require.NoError(t, err)

	env := client.Call(context.Background(), llm.RoleEmployee, "", "build it")
	assert.True(t, env.IsSuccess())
	assert.Equal(t, 3, mock.CallCount())
}

func TestCallExhaustsRetryBudget(t *testing.T) {
	mock := mocks.NewMockLLMClient("test-model")
	mock.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, llmerrors.NewWithStatus(llmerrors.ErrorTypeTransient, 503, "server error")
	})

	client, err := New(mock, fastConfig(3))
	require.NoError(t, err)

	env := client.Call(context.Background(), llm.RoleSupervisor, "", "audit it")
	assert.True(t, env.IsFailure())
	assert.Empty(t, env.Findings)
	assert.Equal(t, "HTTP 503: server error", env.Reason)
	assert.Equal(t, 503, env.HTTPStatus)
	require.NotNil(t, env.Retryable)
	assert.True(t, *env.Retryable)
	assert.Equal(t, 3, mock.CallCount(), "exactly maxRetries attempts")
}

func TestCallStopsImmediatelyOnAuthError(t *testing.T) {
	mock := mocks.NewMockLLMClient("test-model")
	mock.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, llmerrors.NewWithStatus(llmerrors.ErrorTypeAuth, 401, "authentication failed - check API key")
	})

	client, err := New(mock, fastConfig(5))
	require.NoError(t, err)

	env := client.Call(context.Background(), llm.RoleManager, "", "plan")
	assert.True(t, env.IsFailure())
	assert.Equal(t, 401, env.HTTPStatus)
	require.NotNil(t, env.Retryable)
	assert.False(t, *env.Retryable)
	assert.Equal(t, 1, mock.CallCount(), "non-retryable errors get a single attempt")
}

func TestCallCancelledDuringBackoff(t *testing.T) {
	mock := mocks.NewMockLLMClient("test-model")
	mock.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, llmerrors.NewWithStatus(llmerrors.ErrorTypeTransient, 503, "server error")
	})

	cfg := fastConfig(5)
	cfg.InitialBackoff = 10 * time.Second
	cfg.MaxBackoff = 10 * time.Second

	client, err := New(mock, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	env := client.Call(ctx, llm.RoleEmployee, "", "build")
	elapsed := time.Since(start)

	assert.True(t, env.IsFailure())
	require.NotNil(t, env.Retryable)
	assert.False(t, *env.Retryable)
	assert.Contains(t, env.Reason, "cancelled")
	assert.Less(t, elapsed, time.Second, "cancellation must not wait out the backoff")
	assert.Equal(t, 1, mock.CallCount())
}

func TestCallCancelledBeforeAttemptCompletes(t *testing.T) {
	mock := mocks.NewMockLLMClient("test-model")
	mock.OnComplete(func(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		<-ctx.Done()
		return llm.CompletionResponse{}, ctx.Err()
	})

	client, err := New(mock, fastConfig(5))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	env := client.Call(ctx, llm.RoleManager, "", "plan")
	assert.True(t, env.IsFailure())
	assert.Contains(t, env.Reason, "cancelled")
	assert.Equal(t, 1, mock.CallCount())
}

func TestCallParsesFreeTextAsNote(t *testing.T) {
	mock := mocks.NewMockLLMClient("test-model")
	mock.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{Content: "all clear", StopReason: "end_turn"}, nil
	})

	client, err := New(mock, fastConfig(1))
	require.NoError(t, err)

	env := client.Call(context.Background(), llm.RoleSupervisor, "", "audit")
	assert.True(t, env.IsSuccess())
	require.Len(t, env.Findings, 1)
	assert.Equal(t, "note", env.Findings[0].Category)
	assert.Equal(t, "all clear", env.Findings[0].Summary)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, true},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, true},
		{"zero initial backoff", func(c *Config) { c.InitialBackoff = 0 }, true},
		{"cap below base", func(c *Config) { c.MaxBackoff = time.Second; c.InitialBackoff = time.Minute }, true},
		{"jitter above one", func(c *Config) { c.JitterFraction = 1.5 }, true},
		{"negative jitter", func(c *Config) { c.JitterFraction = -0.1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 180*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.InitialBackoff)
	assert.Equal(t, 60*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 0.5, cfg.JitterFraction)
}

func TestNewRejectsNilClient(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.Error(t, err)
}
