// Package anthropic provides startup checks for the Anthropic credentials
// the analysis workers run under.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrEmptyAPIKey indicates no API key was configured.
var ErrEmptyAPIKey = errors.New("anthropic API key is empty")

// ValidateAPIKey verifies the key against the live API with a one-token
// Haiku call, the cheapest request that exercises authentication. Workers
// run this before consuming jobs: a bad key would otherwise fail every
// analysis they pick up.
func ValidateAPIKey(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return ErrEmptyAPIKey
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	_, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.ModelClaude3_5HaikuLatest),
		MaxTokens: anthropic.F(int64(1)),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("hi")),
		}),
	})
	if err != nil {
		return fmt.Errorf("API key validation failed: %w", err)
	}

	return nil
}

// ExtractKeyHint returns the last 4 characters of an API key, safe to log.
func ExtractKeyHint(apiKey string) string {
	if len(apiKey) < 4 {
		return "****"
	}
	return apiKey[len(apiKey)-4:]
}
