package llm

import (
	"context"
	"testing"
)

type stubClient struct {
	content string
	model   string
}

func (s *stubClient) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	return CompletionResponse{Content: s.content}, nil
}

func (s *stubClient) GetModelName() string {
	return s.model
}

func tagMiddleware(tag string) Middleware {
	return func(next LLMClient) LLMClient {
		return WrapClient(
			func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				resp, err := next.Complete(ctx, req)
				resp.Content = tag + "(" + resp.Content + ")"
				return resp, err
			},
			next.GetModelName,
		)
	}
}

// TestWrapClient tests the WrapClient helper function.
func TestWrapClient(t *testing.T) {
	completeCalled := false
	client := WrapClient(
		func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			completeCalled = true
			return CompletionResponse{Content: "wrapped"}, nil
		},
		func() string { return "wrapped-model" },
	)

	resp, err := client.Complete(context.Background(), NewCompletionRequest([]CompletionMessage{NewUserMessage("hi")}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !completeCalled || resp.Content != "wrapped" {
		t.Errorf("expected wrapped completion, got %q", resp.Content)
	}
	if client.GetModelName() != "wrapped-model" {
		t.Errorf("expected 'wrapped-model', got %q", client.GetModelName())
	}
}

// TestChainOrder verifies earlier middlewares are outermost.
func TestChainOrder(t *testing.T) {
	base := &stubClient{content: "base", model: "m"}
	client := Chain(base, tagMiddleware("a"), tagMiddleware("b"))

	resp, err := client.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "a(b(base))" {
		t.Errorf("expected a(b(base)), got %q", resp.Content)
	}
	if client.GetModelName() != "m" {
		t.Errorf("model name not delegated: %q", client.GetModelName())
	}
}

func TestChainNoMiddleware(t *testing.T) {
	base := &stubClient{content: "base"}
	if Chain(base) != LLMClient(base) {
		t.Error("expected base client to be returned unchanged")
	}
}

func TestNewCompletionRequestDefaults(t *testing.T) {
	req := NewCompletionRequest([]CompletionMessage{NewSystemMessage("s"), NewUserMessage("u")})
	if req.MaxTokens != DefaultMaxTokens {
		t.Errorf("unexpected max tokens %d", req.MaxTokens)
	}
	if req.Messages[0].Role != RoleSystem || req.Messages[1].Role != RoleUser {
		t.Errorf("unexpected roles %v", req.Messages)
	}
	msg := NewToolResultMessage([]ToolResult{{ToolCallID: "t1", Content: "ok"}})
	if msg.Role != RoleUser || len(msg.ToolResults) != 1 {
		t.Errorf("unexpected tool result message %+v", msg)
	}
}

func TestMessageTextFoldsToolTurns(t *testing.T) {
	call := CompletionMessage{
		Role:      RoleAssistant,
		Content:   "Let me look.",
		ToolCalls: []ToolCall{{ID: "c1", Name: "search_exercises", Parameters: map[string]any{"keywords": []any{"sleep"}}}},
	}
	want := "Let me look.\n[called search_exercises with {\"keywords\":[\"sleep\"]}]"
	if got := call.Text(); got != want {
		t.Errorf("unexpected text %q", got)
	}

	result := NewToolResultMessage([]ToolResult{{ToolCallID: "c1", Content: "gate closed", IsError: true}})
	if got := result.Text(); got != "Tool error (c1): gate closed" {
		t.Errorf("unexpected text %q", got)
	}

	plain := NewUserMessage("hello")
	if plain.Text() != "hello" {
		t.Errorf("plain message changed: %q", plain.Text())
	}
}
