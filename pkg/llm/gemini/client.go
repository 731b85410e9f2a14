// Package gemini provides the Google Gemini implementation of llm.Client.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"conductor/pkg/llm"
	"conductor/pkg/llmerrors"
)

// DefaultModel is used when no model is configured explicitly.
const DefaultModel = "gemini-2.5-pro"

// Client wraps the Google GenAI client to implement llm.Client.
// The underlying client needs a context to construct, so it is created
// lazily on first use.
type Client struct {
	mu     sync.Mutex
	client *genai.Client
	apiKey string
	model  string
}

// New creates a Gemini client for the given model.
func New(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
	}
}

func (c *Client) ensureClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, llmerrors.NewWithCause(llmerrors.ErrorTypeAuth, err, fmt.Sprintf("failed to create Gemini client: %v", err))
	}
	c.client = client
	return client, nil
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if len(in.Messages) == 0 {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.ErrorTypeBadPrompt, "message list cannot be empty")
	}

	client, err := c.ensureClient(ctx)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	var systemParts []string
	var contents []*genai.Content
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case llm.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  "model", // Gemini uses "model" instead of "assistant"
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}
	if len(contents) == 0 {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.ErrorTypeBadPrompt, "must have at least one non-system message")
	}

	temperature := in.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(in.MaxTokens), //nolint:gosec // token counts stay far below int32 range
	}
	if len(systemParts) > 0 {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(systemParts, "\n\n")}},
		}
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	text := resp.Text()
	if text == "" {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.ErrorTypeTransient, "empty response from Gemini API")
	}

	stopReason := "end_turn"
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
		stopReason = string(resp.Candidates[0].FinishReason)
	}

	return llm.CompletionResponse{
		Content:    text,
		StopReason: stopReason,
	}, nil
}

// ModelName implements llm.Client.
func (c *Client) ModelName() string {
	return c.model
}

// classifyError maps GenAI SDK errors to classified error types.
func classifyError(err error) error {
	var apierr *genai.APIError
	if errors.As(err, &apierr) && apierr.Code > 0 {
		return llmerrors.ClassifyStatus(apierr.Code, err)
	}
	return llmerrors.Classify(err)
}
