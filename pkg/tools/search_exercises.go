package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"solace/pkg/catalog"
	"solace/pkg/gate"
	"solace/pkg/logx"
)

// SearchExercisesToolName is the name the model uses to call the exercise search.
const SearchExercisesToolName = "search_exercises"

// Result size bounds.
const (
	DefaultSearchLimit = 3
	MaxSearchLimit     = 5
)

// ErrGateClosed is returned when the model asks for exercises before the gate allows it.
var ErrGateClosed = errors.New("exercise suggestion gate is closed")

// GateChecker reports the current gate status of a conversation.
type GateChecker interface {
	Validate(ctx context.Context, conversationID string) (gate.Status, error)
}

// ExerciseSearcher finds catalog exercises.
type ExerciseSearcher interface {
	SearchExercises(ctx context.Context, q catalog.Query) ([]catalog.Exercise, error)
}

// SearchResult is what a successful search returns to the model.
type SearchResult struct {
	Exercises []catalog.Exercise `json:"exercises"`
	Count     int                `json:"count"`
}

// SearchExercisesTool lets the model look up exercises for one conversation.
// The gate is re-checked on every call.
type SearchExercisesTool struct {
	gate           GateChecker
	searcher       ExerciseSearcher
	logger         *logx.Logger
	conversationID string
}

// NewSearchExercisesTool creates the tool bound to conversationID.
func NewSearchExercisesTool(conversationID string, g GateChecker, searcher ExerciseSearcher) *SearchExercisesTool {
	return &SearchExercisesTool{
		gate:           g,
		searcher:       searcher,
		conversationID: conversationID,
		logger:         logx.NewLogger("tools"),
	}
}

func (t *SearchExercisesTool) Name() string {
	return SearchExercisesToolName
}

func (t *SearchExercisesTool) Definition() ToolDefinition {
	minLimit, maxLimit := float64(DefaultSearchLimit), float64(MaxSearchLimit)
	return ToolDefinition{
		Name: SearchExercisesToolName,
		Description: "Search the therapeutic exercise library. Only call this once the user has named a concrete challenge, " +
			"you have reflected their experience, they seem emotionally settled, and you have explained that a structured " +
			"exercise could help. Returns up to 5 matching exercises.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"keywords": {
					Type:        "array",
					Description: "Words describing the user's challenge, e.g. [\"sleep\", \"racing thoughts\"]",
					Items:       &Property{Type: "string"},
				},
				"topic": {
					Type:        "string",
					Description: "Optional topic filter such as anxiety, work, sleep, relationships",
				},
				"framework": {
					Type:        "string",
					Description: "Optional framework ID or name to restrict results",
				},
				"limit": {
					Type:        "integer",
					Description: "Number of exercises to return (3-5)",
					Minimum:     &minLimit,
					Maximum:     &maxLimit,
				},
			},
			Required: []string{"keywords"},
		},
	}
}

// clampLimit keeps the result size within [DefaultSearchLimit, MaxSearchLimit].
func clampLimit(n int, ok bool) int {
	switch {
	case !ok || n < DefaultSearchLimit:
		return DefaultSearchLimit
	case n > MaxSearchLimit:
		return MaxSearchLimit
	default:
		return n
	}
}

// Exec validates the gate and, only if it is open, searches the catalog.
func (t *SearchExercisesTool) Exec(ctx context.Context, args map[string]any) (any, error) {
	status, err := t.gate.Validate(ctx, t.conversationID)
	if err != nil {
		return nil, fmt.Errorf("search_exercises: %w", err)
	}
	if !status.AllConditionsMet {
		t.logger.Warn("search blocked for %s: %d gate conditions unmet", t.conversationID, len(status.FailedConditions))
		return nil, fmt.Errorf("%w: %s", ErrGateClosed, strings.Join(status.FailedConditions, "; "))
	}

	q := catalog.Query{
		Keywords:  stringSliceArg(args, "keywords"),
		Topic:     stringArg(args, "topic"),
		Framework: stringArg(args, "framework"),
		Limit:     clampLimit(intArg(args, "limit")),
	}
	found, err := t.searcher.SearchExercises(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search_exercises: %w", err)
	}

	logx.Debug(ctx, "tools", "search %v returned %d exercises", q.Keywords, len(found))
	return &SearchResult{Exercises: found, Count: len(found)}, nil
}
