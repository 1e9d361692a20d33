package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"solace/pkg/catalog"
	"solace/pkg/conversation"
	"solace/pkg/llm"
	"solace/pkg/llm/llmerrors"
	llmmetrics "solace/pkg/llm/middleware/metrics"
	"solace/pkg/logx"
	"solace/pkg/tools"
)

// generation is the outcome of one model exchange, including any tool calls it made.
type generation struct {
	Content   string
	Exercises []catalog.Exercise
	ToolCalls int
	Blocked   bool // a search was refused by the gate
}

// generate calls the model, executing tool calls until it answers in text.
// After MaxToolIterations rounds of tool calls the model is asked once more without tools.
func (c *Controller) generate(ctx context.Context, state conversation.State, messages []llm.CompletionMessage, registry *tools.Registry) (*generation, error) {
	ctx = llmmetrics.WithState(ctx, string(state))

	req := llm.NewCompletionRequest(messages)
	req.MaxTokens = c.maxTokens
	req.Temperature = c.temperature
	if registry != nil && registry.Len() > 0 {
		req.Tools = registry.Definitions()
		req.ToolChoice = "auto"
	}

	gen := &generation{}
	for iteration := 0; iteration < c.cfg.MaxToolIterations && len(req.Tools) > 0; iteration++ {
		resp, err := c.complete(ctx, req, iteration+1)
		if err != nil {
			return nil, err
		}
		if len(resp.ToolCalls) == 0 {
			return gen.finish(resp.Content)
		}

		req.Messages = append(req.Messages, llm.CompletionMessage{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		results := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		for i := range resp.ToolCalls {
			results = append(results, c.execTool(ctx, registry, &resp.ToolCalls[i], gen))
		}
		req.Messages = append(req.Messages, llm.NewToolResultMessage(results))
	}

	if len(req.Tools) > 0 {
		c.logger.Warn("maximum tool iterations (%d) reached; requesting a text answer", c.cfg.MaxToolIterations)
	}
	req.Tools = nil
	req.ToolChoice = ""
	resp, err := c.complete(ctx, req, 0)
	if err != nil {
		return nil, err
	}
	return gen.finish(resp.Content)
}

func (g *generation) finish(content string) (*generation, error) {
	g.Content = strings.TrimSpace(content)
	if g.Content == "" {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "model returned no text")
	}
	return g, nil
}

func (c *Controller) complete(ctx context.Context, req llm.CompletionRequest, iteration int) (llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := c.llm.Complete(ctx, req)
	duration := time.Since(start)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("model call failed after %.3gs: %w", duration.Seconds(), err)
	}
	logx.Debug(ctx, "controller", "model %s answered in %.3gs (iteration %d, %d chars, %d tool calls)",
		c.llm.GetModelName(), duration.Seconds(), iteration, len(resp.Content), len(resp.ToolCalls))
	return resp, nil
}

// execTool runs one tool call. Failures are reported back to the model, never to the user.
func (c *Controller) execTool(ctx context.Context, registry *tools.Registry, call *llm.ToolCall, gen *generation) llm.ToolResult {
	gen.ToolCalls++

	tool, err := registry.Get(call.Name)
	if err != nil {
		c.logger.Warn("model called unknown tool %s", call.Name)
		return llm.ToolResult{ToolCallID: call.ID, Content: err.Error(), IsError: true}
	}

	result, err := tool.Exec(ctx, call.Parameters)
	if err != nil {
		if errors.Is(err, tools.ErrGateClosed) {
			gen.Blocked = true
			c.recorder.IncGateBlocked()
		}
		logx.Debug(ctx, "controller", "tool %s failed: %v", call.Name, err)
		return llm.ToolResult{ToolCallID: call.ID, Content: fmt.Sprintf("Tool failed: %v", err), IsError: true}
	}

	if found, ok := result.(*tools.SearchResult); ok && found.Count > 0 {
		gen.Exercises = append(gen.Exercises, found.Exercises...)
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return llm.ToolResult{ToolCallID: call.ID, Content: fmt.Sprintf("Tool failed: %v", err), IsError: true}
	}
	return llm.ToolResult{ToolCallID: call.ID, Content: string(encoded)}
}
