package google

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"solace/pkg/llm"
	"solace/pkg/tools"
)

func TestConvertMessages(t *testing.T) {
	contents, system, err := convertMessages([]llm.CompletionMessage{
		llm.NewSystemMessage("a"),
		llm.NewSystemMessage("b"),
		llm.NewUserMessage("hello"),
		llm.NewAssistantMessage("hi there"),
	})
	require.NoError(t, err)
	assert.Equal(t, "a\n\nb", system)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "hi there", contents[1].Parts[0].Text)

	_, _, err = convertMessages([]llm.CompletionMessage{llm.NewSystemMessage("only")})
	assert.Error(t, err)
}

func TestConvertTools(t *testing.T) {
	decls := convertTools([]tools.ToolDefinition{{
		Name: "search_exercises",
		InputSchema: tools.InputSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"keywords": {Type: "array", Items: &tools.Property{Type: "string"}},
				"limit":    {Type: "integer"},
			},
			Required: []string{"keywords"},
		},
	}})
	require.Len(t, decls, 1)
	params := decls[0].Parameters
	assert.Equal(t, genai.TypeArray, params.Properties["keywords"].Type)
	assert.Equal(t, genai.TypeString, params.Properties["keywords"].Items.Type)
	assert.Equal(t, genai.TypeInteger, params.Properties["limit"].Type)
	assert.Equal(t, []string{"keywords"}, params.Required)
}
