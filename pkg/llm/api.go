// Package llm provides interfaces and types for language model client implementations.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"solace/pkg/tools"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the person in the conversation.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the model.
	RoleAssistant CompletionRole = "assistant"
)

const (
	// DefaultMaxTokens caps a single conversational reply.
	DefaultMaxTokens = 1024

	// TemperatureConversational keeps replies warm without drifting off topic.
	TemperatureConversational = 0.7
)

// ToolCall represents a tool call made by the model.
type ToolCall struct {
	Parameters map[string]any `json:"parameters"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
}

// ToolResult carries the outcome of a ToolCall back to the model.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// CompletionMessage represents a message in a completion request.
// Assistant messages may carry ToolCalls; the user message that follows carries the matching ToolResults.
type CompletionMessage struct {
	ToolCalls   []ToolCall
	ToolResults []ToolResult
	Content     string
	Role        CompletionRole
}

// CompletionRequest represents a request to generate a completion.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type CompletionRequest struct {
	Messages    []CompletionMessage
	Tools       []tools.ToolDefinition
	ToolChoice  string // "auto", "any" or "" for provider default
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type CompletionResponse struct {
	ToolCalls  []ToolCall
	Content    string // Main response text
	StopReason string // "end_turn", "max_tokens", "tool_use", ...
}

// LLMClient defines the interface for language model interactions.
type LLMClient interface { //nolint:revive // Keep name consistent with provider adapters
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model name for this client.
	GetModelName() string
}

// NewCompletionRequest creates a new completion request with default values.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: TemperatureConversational,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleAssistant, Content: content}
}

// NewToolResultMessage creates the user-role message that answers a batch of tool calls.
func NewToolResultMessage(results []ToolResult) CompletionMessage {
	return CompletionMessage{Role: RoleUser, ToolResults: results}
}

// Text renders the message as plain text, folding tool calls and results into the content.
// Providers without native tool turns send this form.
func (m *CompletionMessage) Text() string {
	if len(m.ToolCalls) == 0 && len(m.ToolResults) == 0 {
		return m.Content
	}

	var sb strings.Builder
	sb.WriteString(m.Content)
	for i := range m.ToolCalls {
		tc := &m.ToolCalls[i]
		args, err := json.Marshal(tc.Parameters)
		if err != nil {
			args = []byte("{}")
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[called %s with %s]", tc.Name, args)
	}
	for i := range m.ToolResults {
		tr := &m.ToolResults[i]
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		label := "Tool result"
		if tr.IsError {
			label = "Tool error"
		}
		fmt.Fprintf(&sb, "%s (%s): %s", label, tr.ToolCallID, tr.Content)
	}
	return sb.String()
}
