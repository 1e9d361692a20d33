// Package factory builds model clients with their middleware chains.
package factory

import (
	"fmt"
	"sync"

	"solace/pkg/config"
	"solace/pkg/llm"
	"solace/pkg/llm/internal/llmimpl/anthropic"
	"solace/pkg/llm/internal/llmimpl/google"
	"solace/pkg/llm/internal/llmimpl/ollama"
	"solace/pkg/llm/internal/llmimpl/openai"
	"solace/pkg/llm/middleware/circuit"
	llmmetrics "solace/pkg/llm/middleware/metrics"
	"solace/pkg/llm/middleware/retry"
	"solace/pkg/llm/middleware/timeout"
	"solace/pkg/logx"
	"solace/pkg/metrics"
)

// RawClientFunc builds an unwrapped provider client. Tests swap it out.
type RawClientFunc func(provider, model, apiKey string) (llm.LLMClient, error)

// LLMClientFactory creates model clients with properly configured middleware chains.
type LLMClientFactory struct {
	cfg             *config.Config
	recorder        metrics.Recorder
	newRaw          RawClientFunc
	circuitBreakers map[string]circuit.Breaker // per-provider
	logger          *logx.Logger
	mu              sync.Mutex
}

// New creates a factory. A nil recorder disables metrics.
func New(cfg *config.Config, recorder metrics.Recorder) *LLMClientFactory {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &LLMClientFactory{
		cfg:             cfg,
		recorder:        recorder,
		newRaw:          newRawClient,
		circuitBreakers: make(map[string]circuit.Breaker),
		logger:          logx.NewLogger("llm-factory"),
	}
}

// WithRawClientFunc replaces the provider client constructor.
func (f *LLMClientFactory) WithRawClientFunc(fn RawClientFunc) *LLMClientFactory {
	f.newRaw = fn
	return f
}

func newRawClient(provider, model, apiKey string) (llm.LLMClient, error) {
	switch provider {
	case config.ProviderAnthropic:
		return anthropic.NewClaudeClientWithModel(apiKey, model), nil
	case config.ProviderOpenAI:
		return openai.NewClientWithModel(apiKey, model), nil
	case config.ProviderGoogle:
		return google.NewGeminiClientWithModel(apiKey, model), nil
	case config.ProviderOllama:
		return ollama.NewOllamaClientWithModel(apiKey, config.OllamaModelName(model)), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func (f *LLMClientFactory) breaker(provider string) circuit.Breaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	if b, ok := f.circuitBreakers[provider]; ok {
		return b
	}
	cb := f.cfg.Resilience.CircuitBreaker
	b := circuit.New(circuit.Config{
		FailureThreshold: cb.FailureThreshold,
		SuccessThreshold: cb.SuccessThreshold,
		Timeout:          cb.Timeout.Std(),
	})
	f.circuitBreakers[provider] = b
	return b
}

// CreateClient creates the configured conversation model client.
func (f *LLMClientFactory) CreateClient() (llm.LLMClient, error) {
	return f.CreateClientForModel(f.cfg.Model.Name)
}

// CreateClientForModel creates a client for modelName with the full middleware chain:
//
//	metrics -> circuit breaker -> retry -> timeout -> provider
func (f *LLMClientFactory) CreateClientForModel(modelName string) (llm.LLMClient, error) {
	provider, err := config.GetModelProvider(modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to determine provider for model %s: %w", modelName, err)
	}
	apiKey, err := config.GetAPIKey(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to get API key for provider %s: %w", provider, err)
	}

	raw, err := f.newRaw(provider, modelName, apiKey)
	if err != nil {
		return nil, err
	}

	rc := f.cfg.Resilience.Retry
	policy := retry.NewPolicy(retry.Config{
		MaxAttempts:   rc.MaxAttempts,
		InitialDelay:  rc.InitialDelay.Std(),
		MaxDelay:      rc.MaxDelay.Std(),
		BackoffFactor: rc.BackoffFactor,
		Jitter:        rc.Jitter,
	}, nil)

	f.logger.Info("model client ready: %s via %s", modelName, provider)
	return llm.Chain(raw,
		llmmetrics.Middleware(f.recorder, nil, f.logger),
		circuit.Middleware(f.breaker(provider)),
		retry.Middleware(policy),
		timeout.Middleware(f.cfg.Resilience.RequestTimeout.Std()),
	), nil
}
