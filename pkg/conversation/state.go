package conversation

import (
	"fmt"
	"strings"
)

// State is the orchestration state of a conversation.
type State string

const (
	StateInit                    State = "INIT"
	StateConversationalDiscovery State = "CONVERSATIONAL_DISCOVERY"
	StateSupportiveProcessing    State = "SUPPORTIVE_PROCESSING"
	StateExerciseSuggestion      State = "EXERCISE_SUGGESTION"
	StateExerciseFacilitation    State = "EXERCISE_FACILITATION"
	StatePostExerciseIntegration State = "POST_EXERCISE_INTEGRATION"
	StateCrisisMode              State = "CRISIS_MODE"
)

// AllStates lists every state in declaration order.
var AllStates = []State{
	StateInit,
	StateConversationalDiscovery,
	StateSupportiveProcessing,
	StateExerciseSuggestion,
	StateExerciseFacilitation,
	StatePostExerciseIntegration,
	StateCrisisMode,
}

func (s State) String() string {
	return string(s)
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	for _, known := range AllStates {
		if s == known {
			return true
		}
	}
	return false
}

// ParseState converts a stored string back into a State.
func ParseState(raw string) (State, error) {
	s := State(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown conversation state %q", raw)
	}
	return s, nil
}
