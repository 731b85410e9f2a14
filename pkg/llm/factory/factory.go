// Package factory constructs provider clients from a model name.
package factory

import (
	"fmt"

	"conductor/pkg/llm"
	"conductor/pkg/llm/anthropic"
	"conductor/pkg/llm/gemini"
	"conductor/pkg/llm/ollama"
	"conductor/pkg/llm/openai"
)

// NewClient builds the raw provider client for the given model name.
// The caller wraps it with the resilient retry layer; nothing here retries.
// ollamaHost is only consulted for colon-form local model names.
func NewClient(model, apiKey, ollamaHost string) (llm.Client, error) {
	switch llm.DetectProvider(model) {
	case llm.ProviderAnthropic:
		return anthropic.New(apiKey, model), nil
	case llm.ProviderOpenAI:
		return openai.New(apiKey, model), nil
	case llm.ProviderGoogle:
		return gemini.New(apiKey, model), nil
	case llm.ProviderOllama:
		return ollama.New(ollamaHost, model), nil
	default:
		return nil, fmt.Errorf("cannot determine provider for model %q", model)
	}
}

// APIKeyEnvVar returns the environment variable that carries the credential
// for the given provider. Ollama needs no credential and returns "".
func APIKeyEnvVar(provider llm.Provider) string {
	switch provider {
	case llm.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case llm.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case llm.ProviderGoogle:
		return "GOOGLE_GENAI_API_KEY"
	default:
		return ""
	}
}
