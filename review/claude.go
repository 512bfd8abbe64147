package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Roles understood by ModelInvoker implementations.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one entry of an ordered model prompt.
type Message struct {
	Role    string
	Content string
}

// ModelInvoker sends an ordered prompt to a language model and returns the
// text of its reply. Implementations must surface call failures rather
// than degrade to partial answers, and must be safe for concurrent use by
// independent review runs.
type ModelInvoker interface {
	Invoke(ctx context.Context, messages []Message) (string, error)
}

const (
	// DefaultModel is the Claude model used for reviews.
	DefaultModel = "claude-sonnet-4-20250514"

	// ClaudeAPITimeout is the maximum time to wait for a Claude API response.
	ClaudeAPITimeout = 3 * time.Minute

	// MaxResponseTokens bounds the length of a single model reply.
	MaxResponseTokens = 4096

	// MaxRetries is the number of times to retry transient API failures.
	MaxRetries = 3

	// RetryBaseDelay is the initial delay between retries (doubles each attempt).
	RetryBaseDelay = 1 * time.Second
)

// isRetryableError checks if an error is transient and worth retrying.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// Retry on rate limits, server errors, and network issues
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		errors.Is(err, context.DeadlineExceeded)
}

// retryWithBackoff executes fn with exponential backoff on retryable errors.
func retryWithBackoff[T any](ctx context.Context, logger *slog.Logger, operation string, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}

		if !isRetryableError(lastErr) {
			return result, lastErr
		}

		if attempt < MaxRetries {
			delay := RetryBaseDelay * time.Duration(1<<attempt) // exponential backoff
			logger.Warn("retrying after transient error",
				"operation", operation,
				"attempt", attempt+1,
				"max_attempts", MaxRetries+1,
				"delay", delay,
				"error", lastErr,
			)

			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return result, fmt.Errorf("max retries exceeded for %s: %w", operation, lastErr)
}

// ClaudeInvoker implements ModelInvoker against the Anthropic Messages API.
type ClaudeInvoker struct {
	apiKey string
	model  string
	logger *slog.Logger
}

// NewClaudeInvoker creates an invoker. An empty model selects DefaultModel.
func NewClaudeInvoker(apiKey, model string, logger *slog.Logger) *ClaudeInvoker {
	if model == "" {
		model = DefaultModel
	}
	return &ClaudeInvoker{
		apiKey: apiKey,
		model:  model,
		logger: logger,
	}
}

// Invoke sends the prompt and returns the first text block of the reply.
// System messages are combined into the API's system prompt; user messages
// are sent in order. Transient failures are retried with backoff before
// the call is reported failed.
func (c *ClaudeInvoker) Invoke(ctx context.Context, messages []Message) (string, error) {
	var systemParts []string
	var userMessages []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, m.Content)
		case RoleUser:
			userMessages = append(userMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		default:
			return "", fmt.Errorf("unsupported message role: %q", m.Role)
		}
	}
	if len(userMessages) == 0 {
		return "", errors.New("prompt has no user message")
	}

	client := anthropic.NewClient(option.WithAPIKey(c.apiKey))

	params := anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.Model(c.model)),
		MaxTokens: anthropic.F(int64(MaxResponseTokens)),
		Messages:  anthropic.F(userMessages),
	}
	if len(systemParts) > 0 {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(strings.Join(systemParts, "\n\n")),
		})
	}

	// Add timeout to prevent hanging indefinitely
	timeoutCtx, cancel := context.WithTimeout(ctx, ClaudeAPITimeout)
	defer cancel()

	// Retry on transient failures
	message, err := retryWithBackoff(timeoutCtx, c.logger, "invokeClaude", func() (*anthropic.Message, error) {
		return client.Messages.New(timeoutCtx, params)
	})
	if err != nil {
		return "", fmt.Errorf("Claude API error: %w", err)
	}

	c.logger.Info("Claude API usage",
		"input_tokens", message.Usage.InputTokens,
		"output_tokens", message.Usage.OutputTokens,
	)

	// Extract text from response
	for _, block := range message.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			return block.Text, nil
		}
	}

	return "", errors.New("no text content in Claude response")
}
