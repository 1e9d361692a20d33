package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokensSimple(""))
	assert.Greater(t, CountTokensSimple("I have been feeling anxious about work lately."), 5)
}

func TestTrimToBudgetKeepsNewest(t *testing.T) {
	items := []string{
		strings.Repeat("old message ", 200),
		"recent message one",
		"recent message two",
	}

	kept := TrimToBudget(items, 20, func(s string) string { return s })
	assert.Equal(t, []string{"recent message one", "recent message two"}, kept)

	assert.Len(t, TrimToBudget(items, 0, func(s string) string { return s }), 3)
	assert.Empty(t, TrimToBudget(items, 1, func(s string) string { return strings.Repeat(s, 10) }))
}
