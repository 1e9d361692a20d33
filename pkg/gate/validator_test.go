package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solace/pkg/conversation"
	"solace/pkg/persistence"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func setup(t *testing.T) (*Validator, *fakeClock, *persistence.MemoryStore) {
	t.Helper()
	store := persistence.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
	require.NoError(t, store.CreateConversation(context.Background(), conversation.New("c1", "u1", clock.now)))
	return NewValidator(store, WithClock(clock.Now)), clock, store
}

func TestNewConversationGateIsClosed(t *testing.T) {
	v, _, _ := setup(t)

	status, err := v.Validate(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, status.AllConditionsMet)
	assert.Equal(t, []string{ReasonNoChallenge, ReasonNoReflection, ReasonNotRegulated, ReasonNoStructure}, status.FailedConditions)
}

func TestFailedConditionsCountMatchesFalseConditions(t *testing.T) {
	v, _, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, v.UpdateConditions(ctx, "c1", conversation.GateUpdate{
		ChallengeArticulated: conversation.Bool(true),
		EmotionallyRegulated: conversation.Bool(true),
	}))

	status, err := v.Validate(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, status.FailedConditions, 2)
	assert.Equal(t, ReasonNoReflection, status.FailedConditions[0])
	assert.Equal(t, ReasonNoStructure, status.FailedConditions[1])

	require.NoError(t, v.UpdateConditions(ctx, "c1", conversation.GateUpdate{
		ReflectionShown:    conversation.Bool(true),
		StructureExplained: conversation.Bool(true),
	}))
	status, err = v.Validate(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, status.AllConditionsMet)
	assert.Empty(t, status.FailedConditions)
}

func TestPartialUpdateLeavesOtherFields(t *testing.T) {
	v, _, store := setup(t)
	ctx := context.Background()

	require.NoError(t, v.UpdateConditions(ctx, "c1", conversation.GateUpdate{ReflectionShown: conversation.Bool(true)}))
	require.NoError(t, v.UpdateConditions(ctx, "c1", conversation.GateUpdate{StructureExplained: conversation.Bool(true)}))

	c, err := store.GetConversation(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, c.Gate.ReflectionShown)
	assert.True(t, c.Gate.StructureExplained)
	assert.False(t, c.Gate.ChallengeArticulated)
	assert.True(t, c.Gate.NoRecentDecline)
}

func TestDeclineCooldown(t *testing.T) {
	v, clock, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, v.RecordDecline(ctx, "c1"))
	status, err := v.Validate(ctx, "c1")
	require.NoError(t, err)
	assert.Contains(t, status.FailedConditions, ReasonRecentlyDeclined)

	clock.now = clock.now.Add(23*time.Hour + 59*time.Minute)
	reset, err := v.MaybeResetDecline(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, reset)

	clock.now = clock.now.Add(time.Minute)
	reset, err = v.MaybeResetDecline(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, reset)

	status, err = v.Validate(ctx, "c1")
	require.NoError(t, err)
	assert.NotContains(t, status.FailedConditions, ReasonRecentlyDeclined)

	reset, err = v.MaybeResetDecline(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, reset, "already open")
}

func TestCustomCooldown(t *testing.T) {
	store := persistence.NewMemoryStore()
	clock := &fakeClock{now: time.Now()}
	ctx := context.Background()
	require.NoError(t, store.CreateConversation(ctx, conversation.New("c1", "u1", clock.now)))
	v := NewValidator(store, WithClock(clock.Now), WithCooldown(time.Hour))

	require.NoError(t, v.RecordDecline(ctx, "c1"))
	clock.now = clock.now.Add(time.Hour)
	reset, err := v.MaybeResetDecline(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, reset)
}

func TestMissingConversationIsNotFound(t *testing.T) {
	v, _, _ := setup(t)
	ctx := context.Background()

	_, err := v.Validate(ctx, "missing")
	assert.True(t, errors.Is(err, conversation.ErrNotFound))

	err = v.RecordDecline(ctx, "missing")
	assert.True(t, errors.Is(err, conversation.ErrNotFound))

	_, err = v.MaybeResetDecline(ctx, "missing")
	assert.True(t, errors.Is(err, conversation.ErrNotFound))

	err = v.UpdateConditions(ctx, "missing", conversation.GateUpdate{ReflectionShown: conversation.Bool(true)})
	assert.True(t, errors.Is(err, conversation.ErrNotFound))
}
