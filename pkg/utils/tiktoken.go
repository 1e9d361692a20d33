// Package utils provides tiktoken-based token counting.
package utils

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter counts tokens with a tiktoken codec. Every provider is approximated with the GPT-4 encoding.
type TokenCounter struct {
	codec tokenizer.Codec
}

//nolint:gochecknoglobals // shared codec; construction is expensive
var (
	defaultCounter     *TokenCounter
	defaultCounterOnce sync.Once
)

// NewTokenCounter creates a token counter.
func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &TokenCounter{codec: codec}, nil
}

// DefaultCounter returns a process-wide counter. It never returns nil.
func DefaultCounter() *TokenCounter {
	defaultCounterOnce.Do(func() {
		c, err := NewTokenCounter()
		if err != nil {
			c = &TokenCounter{}
		}
		defaultCounter = c
	})
	return defaultCounter
}

// CountTokens returns the number of tokens in text, falling back to ~4 chars per token.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.codec == nil {
		return len(text) / 4
	}
	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// CountTokensSimple counts tokens with the default counter.
func CountTokensSimple(text string) int {
	return DefaultCounter().CountTokens(text)
}

// TrimToBudget keeps the newest items whose combined token count fits within budget.
// Items are ordered oldest first; the result preserves that order. A budget <= 0 keeps everything.
func TrimToBudget[T any](items []T, budget int, text func(T) string) []T {
	if budget <= 0 {
		return items
	}
	tc := DefaultCounter()
	used := 0
	start := len(items)
	for i := len(items) - 1; i >= 0; i-- {
		n := tc.CountTokens(text(items[i]))
		if used+n > budget {
			break
		}
		used += n
		start = i
	}
	return items[start:]
}
