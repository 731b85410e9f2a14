// Package anthropic provides the Anthropic Claude implementation of llm.Client.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"conductor/pkg/llm"
	"conductor/pkg/llmerrors"
)

// DefaultModel is used when no model is configured explicitly.
const DefaultModel = "claude-sonnet-4-5"

// Client wraps the Anthropic API client to implement llm.Client.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// New creates a Claude client for the given model (raw client, retry applied
// at a higher level).
func New(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	systemPrompt, messages, err := splitMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewWithCause(llmerrors.ErrorTypeBadPrompt, err, "invalid message sequence")
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int64(in.MaxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{
			Text: systemPrompt,
			Type: "text",
		}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, c.classifyError(err)
	}

	if resp == nil || len(resp.Content) == 0 {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.ErrorTypeTransient, "empty response from Claude API")
	}

	var text strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return llm.CompletionResponse{
		Content:    text.String(),
		StopReason: string(resp.StopReason),
	}, nil
}

// ModelName implements llm.Client.
func (c *Client) ModelName() string {
	return string(c.model)
}

// splitMessages extracts system messages to the top-level system parameter,
// which the Anthropic API requires, and converts the rest.
func splitMessages(in []llm.CompletionMessage) (string, []anthropic.MessageParam, error) {
	if len(in) == 0 {
		return "", nil, errors.New("message list cannot be empty")
	}

	var systemParts []string
	messages := make([]anthropic.MessageParam, 0, len(in))

	for i := range in {
		msg := &in[i]
		switch msg.Role {
		case llm.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case llm.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	if len(messages) == 0 {
		return "", nil, errors.New("must have at least one non-system message")
	}

	return strings.Join(systemParts, "\n\n"), messages, nil
}

// classifyError maps Anthropic SDK errors to classified error types.
func (c *Client) classifyError(err error) *llmerrors.Error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) && apierr.StatusCode > 0 {
		return llmerrors.ClassifyStatus(apierr.StatusCode, err)
	}
	return llmerrors.Classify(err)
}
