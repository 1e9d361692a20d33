package retry

import (
	"context"
	"fmt"
	"time"

	"solace/pkg/llm"
	"solace/pkg/logx"
)

// Middleware returns a middleware function that wraps a client with retry logic.
func Middleware(policy *Policy) llm.Middleware {
	logger := logx.NewLogger("llm-retry")
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				var lastErr error

				for attempt := 1; attempt <= policy.Config.MaxAttempts; attempt++ {
					if delay := policy.CalculateDelay(attempt); delay > 0 {
						select {
						case <-ctx.Done():
							return llm.CompletionResponse{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
						case <-time.After(delay):
						}
					}

					resp, err := next.Complete(ctx, req)
					if err == nil {
						return resp, nil
					}
					lastErr = err

					if !policy.ShouldRetry(err) {
						break
					}
					if attempt < policy.Config.MaxAttempts {
						logger.Warn("attempt %d/%d for %s failed: %v", attempt, policy.Config.MaxAttempts, next.GetModelName(), err)
					}
				}

				return llm.CompletionResponse{}, lastErr
			},
			next.GetModelName,
		)
	}
}
