// Package utils provides tiktoken-based token counting utilities.
package utils

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// fallbackCharsPerToken approximates tokens when no codec is available.
const fallbackCharsPerToken = 4

// TokenCounter provides token counting for prompt diagnostics. All supported
// providers are approximated with the GPT-4 encoding, which is close enough
// for the size estimates in call notes and logs.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter creates a token counter using the GPT-4 encoding.
func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &TokenCounter{codec: codec}, nil
}

// CountTokens returns the number of tokens in the given text, falling back
// to a character-based estimate if the codec fails.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.codec == nil {
		return len(text) / fallbackCharsPerToken
	}
	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / fallbackCharsPerToken
	}
	return count
}

// CountTokensSimple counts tokens without holding a TokenCounter instance.
func CountTokensSimple(text string) int {
	counter, err := NewTokenCounter()
	if err != nil {
		return len(text) / fallbackCharsPerToken
	}
	return counter.CountTokens(text)
}
