// Package llm defines the provider-neutral contract for language model calls.
package llm

import (
	"context"
	"strings"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the model.
	RoleAssistant CompletionRole = "assistant"
)

// AgentRole identifies which pipeline actor is issuing a call. The roles map
// to the plan/phase/build/audit call sites and are carried through logging,
// events, and metrics so every failure names its caller.
type AgentRole string

const (
	// RoleManager plans a stage.
	RoleManager AgentRole = "manager"
	// RoleSupervisor phases a stage and audits build output.
	RoleSupervisor AgentRole = "supervisor"
	// RoleEmployee executes build units.
	RoleEmployee AgentRole = "employee"
)

const (
	// DefaultMaxTokens bounds completion output for regular pipeline calls.
	DefaultMaxTokens = 4096

	// TemperatureDefault suits planning, reviews, and judgment tasks.
	TemperatureDefault = 0.3
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string // Main response text
	StopReason string // Why the response stopped: "end_turn", "max_tokens", etc.
}

// Client is the synchronous contract every provider implementation satisfies.
// Implementations return classified errors (pkg/llmerrors) so the retry layer
// can decide whether an attempt is worth repeating.
type Client interface {
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// ModelName returns the model this client targets.
	ModelName() string
}

// NewCompletionRequest builds a request from a system prompt and user content
// with the default token and temperature settings.
func NewCompletionRequest(systemPrompt, userContent string) CompletionRequest {
	messages := make([]CompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, CompletionMessage{Role: RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, CompletionMessage{Role: RoleUser, Content: userContent})

	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: TemperatureDefault,
	}
}

// ProbeRequest returns the smallest permissible request, used by the
// connectivity preflight to validate reachability cheaply.
func ProbeRequest() CompletionRequest {
	return CompletionRequest{
		Messages:  []CompletionMessage{{Role: RoleUser, Content: "ping"}},
		MaxTokens: 1,
	}
}

// NoCredentialRequired is the credential placeholder for providers that
// authenticate without an API key, such as a local Ollama server. It keeps
// the preflight prober from treating the absence of a key as a failure.
const NoCredentialRequired = "none"

// Provider identifies an upstream API family.
type Provider string

// Supported providers.
const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	ProviderOllama    Provider = "ollama"
)

// DetectProvider determines which provider a model name belongs to.
// Ollama models contain a colon (e.g. "mistral-nemo:latest"); cloud models
// are recognized by prefix. Unknown names return the empty Provider.
func DetectProvider(model string) Provider {
	model = strings.ToLower(model)

	if strings.Contains(model, ":") && !strings.HasPrefix(model, "claude-") &&
		!strings.HasPrefix(model, "gpt-") && !strings.HasPrefix(model, "o3") &&
		!strings.HasPrefix(model, "gemini-") {
		return ProviderOllama
	}

	if strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o3") ||
		strings.HasPrefix(model, "o1") {
		return ProviderOpenAI
	}

	if strings.HasPrefix(model, "claude-") {
		return ProviderAnthropic
	}

	if strings.HasPrefix(model, "gemini-") {
		return ProviderGoogle
	}

	return ""
}
