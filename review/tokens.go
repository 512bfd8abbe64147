package review

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// tokenizerModel selects the tiktoken encoding used for all budget
// accounting. The budgets were tuned against the gpt-4 (cl100k_base)
// encoding; changing the model shifts every threshold.
const tokenizerModel = "gpt-4"

// TokenCounter converts text into the budget units used by the organizer,
// scheduler, and chunker. Implementations must be deterministic and safe
// for concurrent use.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with a tiktoken BPE encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the encoding for the counting model. A load
// failure is fatal for callers: budget comparisons are meaningless without
// a working counter, so nothing should start reviews without one.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	encoding, err := tiktoken.EncodingForModel(tokenizerModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s token encoding: %w", tokenizerModel, err)
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

// Count returns the token count for text. Empty text counts as zero.
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}
