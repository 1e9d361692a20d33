package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solace/pkg/catalog"
	"solace/pkg/conversation"
	"solace/pkg/gate"
	"solace/pkg/persistence"
)

func newStore(t *testing.T) *persistence.MemoryStore {
	t.Helper()
	store := persistence.NewMemoryStore()
	c, err := catalog.Default()
	require.NoError(t, err)
	require.NoError(t, store.SeedCatalog(context.Background(), c))
	require.NoError(t, store.CreateConversation(context.Background(), conversation.New("c1", "u1", time.Now())))
	return store
}

func openGate(t *testing.T, v *gate.Validator) {
	t.Helper()
	require.NoError(t, v.UpdateConditions(context.Background(), "c1", conversation.GateUpdate{
		ChallengeArticulated: conversation.Bool(true),
		ReflectionShown:      conversation.Bool(true),
		EmotionallyRegulated: conversation.Bool(true),
		StructureExplained:   conversation.Bool(true),
	}))
}

func TestSearchBlockedWhenGateClosed(t *testing.T) {
	store := newStore(t)
	tool := NewSearchExercisesTool("c1", gate.NewValidator(store), store)

	result, err := tool.Exec(context.Background(), map[string]any{"keywords": []any{"anxiety"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGateClosed))
	assert.Contains(t, err.Error(), gate.ReasonNoChallenge)
	assert.Nil(t, result)
}

func TestSearchReturnsExercisesWhenGateOpen(t *testing.T) {
	store := newStore(t)
	v := gate.NewValidator(store)
	openGate(t, v)
	tool := NewSearchExercisesTool("c1", v, store)

	result, err := tool.Exec(context.Background(), map[string]any{
		"keywords": []any{"anxiety", "racing thoughts"},
		"limit":    float64(10),
	})
	require.NoError(t, err)

	res, ok := result.(*SearchResult)
	require.True(t, ok)
	require.NotEmpty(t, res.Exercises)
	assert.LessOrEqual(t, res.Count, MaxSearchLimit)
	assert.Equal(t, "grounding-anxious-moment", res.Exercises[0].ID)
}

func TestSearchRechecksGateAfterDecline(t *testing.T) {
	store := newStore(t)
	v := gate.NewValidator(store)
	openGate(t, v)
	require.NoError(t, v.RecordDecline(context.Background(), "c1"))

	_, err := NewSearchExercisesTool("c1", v, store).Exec(context.Background(), map[string]any{"keywords": "sleep"})
	assert.True(t, errors.Is(err, ErrGateClosed))
}

func TestSearchUnknownConversation(t *testing.T) {
	store := newStore(t)
	_, err := NewSearchExercisesTool("missing", gate.NewValidator(store), store).Exec(context.Background(), nil)
	assert.True(t, errors.Is(err, conversation.ErrNotFound))
	assert.False(t, errors.Is(err, ErrGateClosed))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultSearchLimit, clampLimit(0, false))
	assert.Equal(t, DefaultSearchLimit, clampLimit(1, true))
	assert.Equal(t, 4, clampLimit(4, true))
	assert.Equal(t, MaxSearchLimit, clampLimit(9, true))
}

func TestArgParsing(t *testing.T) {
	args := map[string]any{
		"keywords": "work,  deadline ,",
		"topic":    "  work ",
		"limit":    "4",
	}
	assert.Equal(t, []string{"work", "deadline"}, stringSliceArg(args, "keywords"))
	assert.Equal(t, "work", stringArg(args, "topic"))
	n, ok := intArg(args, "limit")
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	_, ok = intArg(args, "missing")
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	store := newStore(t)
	r := NewRegistry(NewSearchExercisesTool("c1", gate.NewValidator(store), store))

	assert.Equal(t, 1, r.Len())
	defs := r.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, SearchExercisesToolName, defs[0].Name)
	assert.Equal(t, []string{"keywords"}, defs[0].InputSchema.Required)

	assert.Error(t, r.Register(NewSearchExercisesTool("c1", nil, nil)))
	_, err := r.Get("nope")
	assert.Error(t, err)
}

func TestDefinitionSchema(t *testing.T) {
	def := NewSearchExercisesTool("c1", nil, nil).Definition()
	schema := def.InputSchema.JSONSchema()

	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	keywords, ok := props["keywords"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "array", keywords["type"])
	assert.Equal(t, map[string]any{"type": "string"}, keywords["items"])

	limit, ok := props["limit"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, float64(MaxSearchLimit), limit["maximum"], 0)
}
