package exercise

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	ctx := context.Background()
	f := NewFacilitator(newStore(t))
	_, err := f.Start(ctx, "c1", groundingExercise)
	require.NoError(t, err)
	_, err = f.AdvancePhase(ctx, "c1")
	require.NoError(t, err)

	active, err := f.GetActive(ctx, "c1")
	require.NoError(t, err)
	prompt := BuildPrompt(active)

	assert.Contains(t, prompt, "5-4-3-2-1 Grounding")
	assert.Contains(t, prompt, "Sensory Grounding")
	assert.Contains(t, prompt, "Core mechanism:")
	assert.Contains(t, prompt, "✓ Arrive")
	assert.Contains(t, prompt, "→ Senses")
	assert.Contains(t, prompt, "○ Check in")
	assert.Contains(t, prompt, "phase 2 of 3: Senses")
	assert.Contains(t, prompt, "Steady guide walking through each sense")
	assert.Contains(t, prompt, "Ask one question at a time.")
	assert.Contains(t, prompt, "9. ")
	assert.False(t, strings.Contains(prompt, "<no value>"))
}
