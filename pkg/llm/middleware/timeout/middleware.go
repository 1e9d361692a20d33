// Package timeout provides timeout middleware for model clients.
package timeout

import (
	"context"
	"time"

	"solace/pkg/llm"
)

// Middleware returns a middleware function that wraps a client with per-request timeout logic.
func Middleware(duration time.Duration) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()

				return next.Complete(timeoutCtx, req)
			},
			next.GetModelName,
		)
	}
}
