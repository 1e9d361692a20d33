package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solace/pkg/llm"
	"solace/pkg/llm/llmerrors"
)

var fastConfig = Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}

func flaky(failures int, err error) (llm.LLMClient, *int) {
	calls := 0
	return llm.WrapClient(
		func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
			calls++
			if calls <= failures {
				return llm.CompletionResponse{}, err
			}
			return llm.CompletionResponse{Content: "ok"}, nil
		},
		func() string { return "flaky" },
	), &calls
}

func TestRetriesTransientErrors(t *testing.T) {
	base, calls := flaky(2, errors.New("status code: 503 overloaded"))
	resp, err := Middleware(NewPolicy(fastConfig, nil))(base).Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, *calls)
}

func TestDoesNotRetryAuthErrors(t *testing.T) {
	base, calls := flaky(5, errors.New("status code: 401 bad key"))
	_, err := Middleware(NewPolicy(fastConfig, nil))(base).Complete(context.Background(), llm.CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, *calls)
	assert.True(t, llmerrors.Is(llmerrors.Classify(err), llmerrors.ErrorTypeAuth))
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	base, calls := flaky(10, errors.New("connection reset"))
	_, err := Middleware(NewPolicy(fastConfig, nil))(base).Complete(context.Background(), llm.CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, 3, *calls)
}

func TestShouldRetry(t *testing.T) {
	assert.False(t, ShouldRetry(nil))
	assert.False(t, ShouldRetry(context.DeadlineExceeded))
	assert.False(t, ShouldRetry(llmerrors.NewError(llmerrors.ErrorTypeServiceUnavailable, "open")))
	assert.True(t, ShouldRetry(llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "slow")))
}

func TestCalculateDelay(t *testing.T) {
	p := NewPolicy(Config{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}, nil)
	assert.Zero(t, p.CalculateDelay(1))
	assert.Equal(t, 100*time.Millisecond, p.CalculateDelay(2))
	assert.Equal(t, 200*time.Millisecond, p.CalculateDelay(3))
	assert.Equal(t, 300*time.Millisecond, p.CalculateDelay(5))
}
