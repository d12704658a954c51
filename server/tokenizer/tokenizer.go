// Package tokenizer counts tokens for usage reporting.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Counter counts the tokens in a piece of text.
type Counter interface {
	Count(text string) int
}

// Whitespace counts whitespace separated words. It is the fallback when no
// encoding is available for a model.
type Whitespace struct{}

// Count implements Counter.
func (Whitespace) Count(text string) int {
	return len(strings.Fields(text))
}

// Tiktoken counts BPE tokens with a tiktoken encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the encoding used by model.
func NewTiktoken(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding for model %s: %w", model, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// Count implements Counter.
func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// New returns a tiktoken counter for model, or Whitespace when the
// encoding cannot be loaded (unknown model, offline BPE download).
func New(model string, logger *zap.Logger) Counter {
	tk, err := NewTiktoken(model)
	if err != nil {
		if logger != nil {
			logger.Warn("falling back to whitespace token counting",
				zap.String("model", model),
				zap.Error(err),
			)
		}
		return Whitespace{}
	}
	return tk
}
