package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solace/pkg/llm"
	"solace/pkg/tools"
)

func TestBuildInput(t *testing.T) {
	instructions, transcript := buildInput([]llm.CompletionMessage{
		llm.NewSystemMessage("be warm"),
		llm.NewUserMessage("work is crushing me"),
		llm.NewAssistantMessage("That sounds heavy."),
		llm.NewUserMessage("yeah"),
	})
	assert.Equal(t, "be warm", instructions)
	assert.Equal(t, "User: work is crushing me\n\nAssistant: That sounds heavy.\n\nUser: yeah", transcript)
}

func TestFunctionTools(t *testing.T) {
	defs := []tools.ToolDefinition{{
		Name:        "search_exercises",
		Description: "find exercises",
		InputSchema: tools.InputSchema{
			Type:       "object",
			Properties: map[string]tools.Property{"keywords": {Type: "array", Items: &tools.Property{Type: "string"}}},
			Required:   []string{"keywords"},
		},
	}}

	out := functionTools(defs)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].OfFunction)
	assert.Equal(t, "search_exercises", out[0].OfFunction.Name)
	assert.Equal(t, "object", out[0].OfFunction.Parameters["type"])
}
