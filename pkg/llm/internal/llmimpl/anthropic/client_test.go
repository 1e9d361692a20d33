package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solace/pkg/llm"
)

func TestEnsureAlternationExtractsSystem(t *testing.T) {
	system, msgs, err := ensureAlternation([]llm.CompletionMessage{
		llm.NewSystemMessage("be kind"),
		llm.NewSystemMessage("state: DISCOVERY"),
		llm.NewUserMessage("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "be kind\n\nstate: DISCOVERY", system)
	require.Len(t, msgs, 1)
	assert.Equal(t, llm.RoleUser, msgs[0].Role)
}

func TestEnsureAlternationMergesAndFoldsToolTurns(t *testing.T) {
	_, msgs, err := ensureAlternation([]llm.CompletionMessage{
		llm.NewAssistantMessage("orphaned greeting"),
		llm.NewUserMessage("I can't sleep"),
		llm.NewUserMessage("again"),
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "t1", Name: "search_exercises"}}},
		llm.NewToolResultMessage([]llm.ToolResult{{ToolCallID: "t1", Content: "[]"}}),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "I can't sleep\n\nagain", msgs[0].Content)
	assert.Equal(t, llm.RoleAssistant, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "search_exercises")
	assert.Equal(t, "Tool result (t1): []", msgs[2].Content)
}

func TestEnsureAlternationRejectsTrailingAssistant(t *testing.T) {
	_, _, err := ensureAlternation([]llm.CompletionMessage{
		llm.NewUserMessage("hi"),
		llm.NewAssistantMessage("hello"),
	})
	assert.Error(t, err)

	_, _, err = ensureAlternation(nil)
	assert.Error(t, err)

	_, _, err = ensureAlternation([]llm.CompletionMessage{llm.NewSystemMessage("only system")})
	assert.Error(t, err)
}

func TestGetModelName(t *testing.T) {
	assert.Equal(t, "claude-sonnet-4-5", NewClaudeClientWithModel("key", "claude-sonnet-4-5").GetModelName())
}
