package controller

import (
	"context"
	"regexp"
	"strings"

	"solace/pkg/catalog"
	"solace/pkg/conversation"
)

// turnSignals are the user-message observations that drive the heuristic proposal.
type turnSignals struct {
	challenge    bool
	dysregulated bool
	declined     bool
}

// proposeState returns the heuristic next state when the model did not surface exercises.
func proposeState(current conversation.State, s turnSignals) conversation.State {
	switch current {
	case conversation.StateInit:
		return conversation.StateConversationalDiscovery
	case conversation.StateConversationalDiscovery:
		if s.challenge || s.dysregulated {
			return conversation.StateSupportiveProcessing
		}
	case conversation.StateExerciseSuggestion:
		if s.declined {
			return conversation.StateSupportiveProcessing
		}
	case conversation.StatePostExerciseIntegration:
		return conversation.StateConversationalDiscovery
	case conversation.StateCrisisMode:
		return conversation.StateSupportiveProcessing
	}
	return current
}

//nolint:gochecknoglobals // compiled once, read-only
var ordinals = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(first|1st)\b|\b(number|option) (one|1)\b|^\s*1\s*[.!]*\s*$`),
	regexp.MustCompile(`(?i)\b(second|2nd)\b|\b(number|option) (two|2)\b|^\s*2\s*[.!]*\s*$`),
	regexp.MustCompile(`(?i)\b(third|3rd)\b|\b(number|option) (three|3)\b|^\s*3\s*[.!]*\s*$`),
}

// exerciseLookup loads catalog exercises by ID.
type exerciseLookup interface {
	GetExercise(ctx context.Context, id string) (*catalog.Exercise, error)
}

// resolveAccepted picks which pending suggestion the user accepted:
// a title mention first, then an ordinal, then the first suggestion.
func resolveAccepted(ctx context.Context, store exerciseLookup, message string, pending []string) string {
	if len(pending) == 0 {
		return ""
	}

	lower := strings.ToLower(message)
	for _, id := range pending {
		ex, err := store.GetExercise(ctx, id)
		if err != nil {
			continue
		}
		if strings.Contains(lower, strings.ToLower(ex.Title)) || strings.Contains(lower, strings.ToLower(ex.ID)) {
			return id
		}
	}

	for i, re := range ordinals {
		if i < len(pending) && re.MatchString(message) {
			return pending[i]
		}
	}

	return pending[0]
}
