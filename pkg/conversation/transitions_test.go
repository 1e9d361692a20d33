package conversation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryStateCanEscalateToCrisis(t *testing.T) {
	for _, s := range AllStates {
		assert.True(t, ValidTransitions.IsValid(s, StateCrisisMode), "state %s", s)
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from  State
		to    State
		valid bool
	}{
		{StateInit, StateConversationalDiscovery, true},
		{StateInit, StateExerciseSuggestion, false},
		{StateConversationalDiscovery, StateExerciseSuggestion, true},
		{StateSupportiveProcessing, StateConversationalDiscovery, true},
		{StateExerciseSuggestion, StateExerciseFacilitation, true},
		{StateExerciseFacilitation, StateSupportiveProcessing, false},
		{StateExerciseFacilitation, StatePostExerciseIntegration, true},
		{StatePostExerciseIntegration, StateExerciseSuggestion, false},
		{StateCrisisMode, StateSupportiveProcessing, true},
		{StateCrisisMode, StateExerciseFacilitation, false},
		{StateSupportiveProcessing, StateSupportiveProcessing, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidTransitions.IsValid(tt.from, tt.to))
		})
	}
}

func TestResolveKeepsCurrentStateOnInvalidProposal(t *testing.T) {
	next, ok := ValidTransitions.Resolve(StateInit, StateExerciseFacilitation)
	assert.False(t, ok)
	assert.Equal(t, StateInit, next)

	next, ok = ValidTransitions.Resolve(StateInit, StateConversationalDiscovery)
	assert.True(t, ok)
	assert.Equal(t, StateConversationalDiscovery, next)
}

func TestValidateWrapsSentinel(t *testing.T) {
	err := ValidTransitions.Validate(StateExerciseFacilitation, StateConversationalDiscovery)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.NoError(t, ValidTransitions.Validate(StateExerciseSuggestion, StateExerciseFacilitation))
}

func TestParseState(t *testing.T) {
	s, err := ParseState(" crisis_mode ")
	require.NoError(t, err)
	assert.Equal(t, StateCrisisMode, s)

	_, err = ParseState("DONE")
	assert.Error(t, err)
}
