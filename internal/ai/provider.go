// Package ai defines the LLM provider abstraction and its adapters.
// Providers stream events; tool execution belongs to the caller.
package ai

import (
	"context"
	"encoding/json"
)

// StreamEventType defines the type of streaming event
type StreamEventType string

const (
	EventTypeText     StreamEventType = "text"
	EventTypeToolCall StreamEventType = "tool_call"
	EventTypeThinking StreamEventType = "thinking"
	EventTypeError    StreamEventType = "error"
	EventTypeDone     StreamEventType = "done"
)

// StreamEvent represents a streaming response event
type StreamEvent struct {
	Type     StreamEventType `json:"type"`
	Text     string          `json:"text,omitempty"`
	ToolCall *ToolCall       `json:"tool_call,omitempty"`
	Error    error           `json:"error,omitempty"`
}

// ToolCall represents a tool invocation from the AI
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult represents the outcome of a tool execution fed back to the AI
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// ToolDefinition describes a tool available to the AI
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Message is one turn of the running conversation.
// Role is one of user, assistant, system, tool.
type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// ChatRequest represents a request to the AI provider
type ChatRequest struct {
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	System      string           `json:"system,omitempty"`
	Model       string           `json:"model,omitempty"` // overrides the provider default
}

// Provider interface for AI providers
type Provider interface {
	// ID returns the provider identifier (e.g., "anthropic", "openai")
	ID() string

	// Stream sends a request and returns a channel of streaming events
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error)
}

// respondedToolIDs collects the tool-call ids that have a recorded result.
// Adapters use it to drop dangling tool calls that would make the upstream
// API reject the conversation.
func respondedToolIDs(msgs []Message) map[string]bool {
	ids := make(map[string]bool)
	for _, msg := range msgs {
		if msg.Role == "tool" {
			for _, r := range msg.ToolResults {
				ids[r.ToolCallID] = true
			}
		}
	}
	return ids
}

// findToolName resolves a tool-call id back to its tool name.
func findToolName(toolCallID string, msgs []Message) string {
	for _, msg := range msgs {
		if msg.Role != "assistant" {
			continue
		}
		for _, c := range msg.ToolCalls {
			if c.ID == toolCallID {
				return c.Name
			}
		}
	}
	return "unknown"
}
