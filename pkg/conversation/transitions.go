package conversation

import (
	"fmt"
	"slices"
)

// TransitionTable maps each state to the states it may move to.
type TransitionTable map[State][]State

// ValidTransitions is the conversation transition table. Every state may escalate to CRISIS_MODE.
//
//nolint:gochecknoglobals // read-only table
var ValidTransitions = TransitionTable{
	StateInit: {
		StateConversationalDiscovery,
		StateCrisisMode,
	},
	StateConversationalDiscovery: {
		StateSupportiveProcessing,
		StateExerciseSuggestion,
		StateCrisisMode,
	},
	StateSupportiveProcessing: {
		StateConversationalDiscovery,
		StateExerciseSuggestion,
		StateCrisisMode,
	},
	StateExerciseSuggestion: {
		StateExerciseFacilitation,
		StateSupportiveProcessing,
		StateCrisisMode,
	},
	StateExerciseFacilitation: {
		StatePostExerciseIntegration,
		StateCrisisMode,
	},
	StatePostExerciseIntegration: {
		StateConversationalDiscovery,
		StateSupportiveProcessing,
		StateCrisisMode,
	},
	StateCrisisMode: {
		StateConversationalDiscovery,
		StateSupportiveProcessing,
		StateCrisisMode,
	},
}

// IsValid reports whether from → to is allowed. Staying in the same state is always allowed.
func (t TransitionTable) IsValid(from, to State) bool {
	if from == to {
		return true
	}
	return slices.Contains(t[from], to)
}

// Validate returns ErrInvalidTransition when from → to is not allowed.
func (t TransitionTable) Validate(from, to State) error {
	if !t.IsValid(from, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Resolve returns proposed when the transition is valid and from otherwise.
func (t TransitionTable) Resolve(from, proposed State) (State, bool) {
	if t.IsValid(from, proposed) {
		return proposed, true
	}
	return from, false
}
