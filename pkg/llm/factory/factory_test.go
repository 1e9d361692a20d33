package factory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solace/pkg/config"
	"solace/pkg/llm"
	"solace/pkg/llm/middleware/circuit"
)

func TestCreateClientBuildsChain(t *testing.T) {
	t.Setenv(config.EnvAnthropicAPIKey, "test-key")
	cfg := config.Default()
	cfg.Resilience.Retry.MaxAttempts = 1
	cfg.Resilience.CircuitBreaker.FailureThreshold = 2
	cfg.Resilience.CircuitBreaker.Timeout = config.Duration(time.Hour)

	var gotProvider, gotKey string
	calls := 0
	f := New(cfg, nil).WithRawClientFunc(func(provider, model, apiKey string) (llm.LLMClient, error) {
		gotProvider, gotKey = provider, apiKey
		return llm.WrapClient(
			func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
				calls++
				return llm.CompletionResponse{}, errors.New("status code: 500")
			},
			func() string { return model },
		), nil
	})

	client, err := f.CreateClient()
	require.NoError(t, err)
	assert.Equal(t, config.ProviderAnthropic, gotProvider)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, config.ModelClaudeSonnetLatest, client.GetModelName())

	for i := 0; i < 2; i++ {
		_, err = client.Complete(context.Background(), llm.CompletionRequest{})
		require.Error(t, err)
	}
	_, err = client.Complete(context.Background(), llm.CompletionRequest{})
	var cbErr *circuit.Error
	assert.True(t, errors.As(err, &cbErr))
	assert.Equal(t, 2, calls)
}

func TestCreateClientUnknownModel(t *testing.T) {
	_, err := New(config.Default(), nil).CreateClientForModel("mystery")
	assert.Error(t, err)
}

func TestCreateClientMissingKey(t *testing.T) {
	t.Setenv(config.EnvOpenAIAPIKey, "")
	_, err := New(config.Default(), nil).CreateClientForModel("gpt-5")
	assert.Error(t, err)
}

func TestBreakerSharedPerProvider(t *testing.T) {
	f := New(config.Default(), nil)
	assert.Same(t, f.breaker(config.ProviderAnthropic), f.breaker(config.ProviderAnthropic))
	assert.NotSame(t, f.breaker(config.ProviderAnthropic), f.breaker(config.ProviderOllama))
}

func TestNewRawClientProviders(t *testing.T) {
	for _, p := range []string{config.ProviderAnthropic, config.ProviderOpenAI, config.ProviderGoogle, config.ProviderOllama} {
		c, err := newRawClient(p, "m", "k")
		require.NoError(t, err, p)
		assert.NotNil(t, c)
	}
	_, err := newRawClient("other", "m", "k")
	assert.Error(t, err)
}
