package circuit

import (
	"context"

	"solace/pkg/llm"
)

// Middleware rejects calls while b is open; the wrapped client is not invoked.
func Middleware(b Breaker) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if err := b.Allow(); err != nil {
					return llm.CompletionResponse{}, err
				}
				resp, err := next.Complete(ctx, req)
				b.Record(err)
				return resp, err //nolint:wrapcheck // pass-through
			},
			next.GetModelName,
		)
	}
}
