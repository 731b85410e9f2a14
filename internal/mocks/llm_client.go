// Package mocks provides test doubles shared across packages.
package mocks

import (
	"context"
	"sync"

	"conductor/pkg/llm"
)

// MockLLMClient implements llm.Client for tests. Behavior is injected via
// CompleteFunc; every call is recorded for assertions.
type MockLLMClient struct {
	mu            sync.Mutex
	CompleteFunc  func(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error)
	CompleteCalls []llm.CompletionRequest
	modelName     string
}

// NewMockLLMClient creates a mock that returns empty responses until
// configured with OnComplete.
func NewMockLLMClient(modelName string) *MockLLMClient {
	return &MockLLMClient{modelName: modelName}
}

// OnComplete sets the behavior for Complete.
func (m *MockLLMClient) OnComplete(fn func(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteFunc = fn
}

// Complete implements llm.Client.
func (m *MockLLMClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls = append(m.CompleteCalls, in)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, in)
	}
	return llm.CompletionResponse{Content: "", StopReason: "end_turn"}, nil
}

// ModelName implements llm.Client.
func (m *MockLLMClient) ModelName() string {
	return m.modelName
}

// CallCount returns how many Complete calls were issued.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CompleteCalls)
}
