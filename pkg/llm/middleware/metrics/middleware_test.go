package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"solace/pkg/llm"
)

type observation struct {
	model, state, errorType string
	prompt, completion      int
	success                 bool
}

type captureRecorder struct {
	observations []observation
}

func (c *captureRecorder) ObserveRequest(model, state string, p, comp int, success bool, errorType string, _ time.Duration) {
	c.observations = append(c.observations, observation{model, state, errorType, p, comp, success})
}
func (c *captureRecorder) ObserveTurn(string, time.Duration)  {}
func (c *captureRecorder) IncTransition(string, string)        {}
func (c *captureRecorder) IncInvalidTransition(string, string) {}
func (c *captureRecorder) IncCrisis(string)                    {}
func (c *captureRecorder) IncGateBlocked()                     {}
func (c *captureRecorder) IncExerciseEvent(string)             {}

func TestMiddlewareRecordsSuccess(t *testing.T) {
	r := &captureRecorder{}
	base := llm.WrapClient(
		func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
			return llm.CompletionResponse{Content: "that sounds really hard"}, nil
		},
		func() string { return "claude-test" },
	)
	extract := func(_ llm.CompletionRequest, _ llm.CompletionResponse) (int, int) { return 11, 7 }

	ctx := WithState(context.Background(), "SUPPORTIVE_PROCESSING")
	_, err := Middleware(r, extract, nil)(base).Complete(ctx, llm.CompletionRequest{})
	assert.NoError(t, err)

	assert.Equal(t, []observation{{"claude-test", "SUPPORTIVE_PROCESSING", "", 11, 7, true}}, r.observations)
}

func TestMiddlewareRecordsErrorType(t *testing.T) {
	r := &captureRecorder{}
	base := llm.WrapClient(
		func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
			return llm.CompletionResponse{}, errors.New("status code: 429 slow down")
		},
		func() string { return "m" },
	)

	_, err := Middleware(r, nil, nil)(base).Complete(context.Background(), llm.CompletionRequest{})
	assert.Error(t, err)
	assert.Len(t, r.observations, 1)
	assert.Equal(t, "rate_limit", r.observations[0].errorType)
	assert.Equal(t, "unknown", r.observations[0].state)
	assert.False(t, r.observations[0].success)
}

func TestDefaultUsageExtractorCountsToolResults(t *testing.T) {
	req := llm.CompletionRequest{Messages: []llm.CompletionMessage{
		llm.NewUserMessage("I keep putting off my thesis"),
		llm.NewToolResultMessage([]llm.ToolResult{{ToolCallID: "1", Content: "exercise list"}}),
	}}
	p, c := DefaultUsageExtractor(req, llm.CompletionResponse{Content: "Let's look at that."})
	assert.Positive(t, p)
	assert.Positive(t, c)
}
