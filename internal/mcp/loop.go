package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/stridelabs/stride/internal/ai"
	"github.com/stridelabs/stride/internal/logging"
)

// maxToolIterations caps how many LLM/tool rounds a single turn may take.
const maxToolIterations = 10

// ToolExecutor executes one tool call. *Manager satisfies it.
type ToolExecutor interface {
	ExecuteToolByName(ctx context.Context, call ToolCall) ToolResult
}

// LoopResult is the outcome of a full tool-calling turn.
type LoopResult struct {
	// Messages is the running conversation including every assistant
	// tool-call message and tool-result message appended by the loop.
	Messages []ai.Message `json:"messages"`

	// FinalText is the assistant's last text output.
	FinalText string `json:"finalText"`

	// Iterations is how many LLM rounds ran.
	Iterations int `json:"iterations"`

	// Truncated is set when the loop stopped at the iteration cap with
	// tool calls still pending, rather than on a natural completion.
	Truncated bool `json:"truncated"`
}

// ProcessWithTools alternates LLM calls and tool executions until the
// model stops requesting tools or the iteration cap is hit. Tool
// failures are fed back into the conversation as error results; they
// never abort the turn.
func ProcessWithTools(ctx context.Context, provider ai.Provider, req *ai.ChatRequest, exec ToolExecutor) (*LoopResult, error) {
	messages := append([]ai.Message(nil), req.Messages...)
	result := &LoopResult{}

	for result.Iterations < maxToolIterations {
		result.Iterations++

		round := *req
		round.Messages = messages

		events, err := provider.Stream(ctx, &round)
		if err != nil {
			return nil, fmt.Errorf("provider stream: %w", err)
		}

		var text strings.Builder
		var toolCalls []ai.ToolCall
		var streamErr error

		for ev := range events {
			switch ev.Type {
			case ai.EventTypeText:
				text.WriteString(ev.Text)
			case ai.EventTypeToolCall:
				if ev.ToolCall != nil {
					toolCalls = append(toolCalls, *ev.ToolCall)
				}
			case ai.EventTypeError:
				streamErr = ev.Error
			}
		}
		if streamErr != nil {
			return nil, fmt.Errorf("provider stream: %w", streamErr)
		}

		assistant := ai.Message{
			Role:      "assistant",
			Content:   text.String(),
			ToolCalls: toolCalls,
		}
		messages = append(messages, assistant)
		result.FinalText = assistant.Content

		if len(toolCalls) == 0 {
			result.Messages = messages
			return result, nil
		}

		var results []ai.ToolResult
		for _, tc := range toolCalls {
			r := exec.ExecuteToolByName(ctx, ToolCall{
				ID:        tc.ID,
				Name:      tc.Name,
				Arguments: tc.Input,
			})
			content := r.Result
			if !r.Success {
				content = r.Error
				logging.Warnf("mcp: tool %s failed: %s", tc.Name, r.Error)
			}
			results = append(results, ai.ToolResult{
				ToolCallID: r.ToolCallID,
				Content:    content,
				IsError:    !r.Success,
			})
		}
		messages = append(messages, ai.Message{
			Role:        "tool",
			ToolResults: results,
		})
	}

	logging.Warnf("mcp: tool loop hit %d-iteration cap", maxToolIterations)
	result.Messages = messages
	result.Truncated = true
	return result, nil
}
