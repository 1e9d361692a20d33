// Package metrics provides metrics middleware for model clients.
package metrics

import (
	"context"
	"strings"
	"time"

	"solace/pkg/llm"
	"solace/pkg/llm/llmerrors"
	"solace/pkg/logx"
	rec "solace/pkg/metrics"
	"solace/pkg/utils"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type stateKey struct{}

// WithState tags ctx with the conversation state the request is made in.
func WithState(ctx context.Context, state string) context.Context {
	return context.WithValue(ctx, stateKey{}, state)
}

func stateFrom(ctx context.Context) string {
	if s, ok := ctx.Value(stateKey{}).(string); ok {
		return s
	}
	return "unknown"
}

// UsageExtractor is a function that extracts token usage from a request and response.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor counts tokens with the shared tiktoken counter.
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	var sb strings.Builder
	for i := range req.Messages {
		sb.WriteString(req.Messages[i].Content)
		sb.WriteByte('\n')
		for _, r := range req.Messages[i].ToolResults {
			sb.WriteString(r.Content)
			sb.WriteByte('\n')
		}
	}
	return utils.CountTokensSimple(sb.String()), utils.CountTokensSimple(resp.Content)
}

// Middleware returns a middleware function that records latency, token usage and error types.
func Middleware(recorder rec.Recorder, usageExtractor UsageExtractor, logger *logx.Logger) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				errorType := ""
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				} else {
					errorType = llmerrors.Classify(err).Type.String()
				}

				model := next.GetModelName()
				state := stateFrom(ctx)
				recorder.ObserveRequest(model, state, promptTokens, completionTokens, err == nil, errorType, duration)

				if logger != nil {
					status := statusSuccess
					if err != nil {
						status = statusError
					}
					logger.Debug("model=%s state=%s tokens=%d+%d status=%s duration=%dms",
						model, state, promptTokens, completionTokens, status, duration.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}
