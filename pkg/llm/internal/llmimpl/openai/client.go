// Package openai provides the OpenAI adapter for the llm interface, built on the Responses API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"solace/pkg/llm"
	"solace/pkg/llm/llmerrors"
	"solace/pkg/tools"
)

// Client wraps the official OpenAI Go client to implement llm.LLMClient.
//
//nolint:govet // Simple struct, field alignment not critical
type Client struct {
	client openai.Client
	model  string
}

// NewClientWithModel creates a raw OpenAI client; middleware is applied by the factory.
func NewClientWithModel(apiKey, model string) llm.LLMClient {
	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// buildInput flattens the conversation into the instructions and a single transcript string.
func buildInput(messages []llm.CompletionMessage) (instructions, transcript string) {
	var sys []string
	var sb strings.Builder
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			sys = append(sys, msg.Content)
		case llm.RoleAssistant:
			fmt.Fprintf(&sb, "Assistant: %s\n\n", msg.Text())
		default:
			fmt.Fprintf(&sb, "User: %s\n\n", msg.Text())
		}
	}
	return strings.Join(sys, "\n\n"), strings.TrimSpace(sb.String())
}

func functionTools(defs []tools.ToolDefinition) []responses.ToolUnionParam {
	out := make([]responses.ToolUnionParam, len(defs))
	for i := range defs {
		def := &defs[i]
		out[i] = responses.ToolUnionParam{
			OfFunction: &responses.FunctionToolParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.InputSchema.JSONSchema()),
			},
		}
	}
	return out
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // CompletionRequest passed by value to match interface
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	instructions, transcript := buildInput(in.Messages)
	if transcript == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "no conversation input")
	}

	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(int64(in.MaxTokens)),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(transcript)},
	}
	if instructions != "" {
		params.Instructions = openai.String(instructions)
	}
	if len(in.Tools) > 0 {
		params.Tools = functionTools(in.Tools)
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.Classify(err)
	}
	if resp == nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from OpenAI Responses API")
	}

	var toolCalls []llm.ToolCall
	for i := range resp.Output {
		item := &resp.Output[i]
		if item.Type != "function_call" {
			continue
		}
		call := item.AsFunctionCall()
		var args map[string]any
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
				continue
			}
		}
		id := call.CallID
		if id == "" {
			id = call.ID
		}
		toolCalls = append(toolCalls, llm.ToolCall{ID: id, Name: call.Name, Parameters: args})
	}

	content := resp.OutputText()
	if content == "" && len(toolCalls) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "no text or tool calls in OpenAI response")
	}

	return llm.CompletionResponse{
		Content:    content,
		ToolCalls:  toolCalls,
		StopReason: string(resp.Status),
	}, nil
}

// GetModelName returns the model name for this client.
func (o *Client) GetModelName() string {
	return o.model
}
