package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stridelabs/stride/internal/ai"
)

// scriptedProvider plays back one round of events per Stream call,
// replaying the last round once the script runs out.
type scriptedProvider struct {
	rounds [][]ai.StreamEvent
	calls  int
}

func (p *scriptedProvider) ID() string { return "scripted" }

func (p *scriptedProvider) Stream(ctx context.Context, req *ai.ChatRequest) (<-chan ai.StreamEvent, error) {
	i := p.calls
	if i >= len(p.rounds) {
		i = len(p.rounds) - 1
	}
	p.calls++

	ch := make(chan ai.StreamEvent, len(p.rounds[i])+1)
	for _, ev := range p.rounds[i] {
		ch <- ev
	}
	ch <- ai.StreamEvent{Type: ai.EventTypeDone}
	close(ch)
	return ch, nil
}

// recordingExecutor answers every call with a canned result.
type recordingExecutor struct {
	calls  []ToolCall
	result ToolResult
}

func (e *recordingExecutor) ExecuteToolByName(ctx context.Context, call ToolCall) ToolResult {
	e.calls = append(e.calls, call)
	r := e.result
	r.ToolCallID = call.ID
	return r
}

func toolCallEvent(id, name, input string) ai.StreamEvent {
	return ai.StreamEvent{
		Type: ai.EventTypeToolCall,
		ToolCall: &ai.ToolCall{
			ID:    id,
			Name:  name,
			Input: json.RawMessage(input),
		},
	}
}

func TestProcessWithTools(t *testing.T) {
	provider := &scriptedProvider{rounds: [][]ai.StreamEvent{
		{toolCallEvent("c1", "add_event", `{"title":"run"}`)},
		{{Type: ai.EventTypeText, Text: "Added your run to the calendar."}},
	}}
	exec := &recordingExecutor{result: ToolResult{Success: true, Result: "ok"}}

	res, err := ProcessWithTools(context.Background(), provider, &ai.ChatRequest{
		Messages: []ai.Message{{Role: "user", Content: "schedule a run"}},
	}, exec)
	if err != nil {
		t.Fatal(err)
	}

	if res.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", res.Iterations)
	}
	if res.Truncated {
		t.Error("natural completion must not be marked truncated")
	}
	if res.FinalText != "Added your run to the calendar." {
		t.Errorf("final text = %q", res.FinalText)
	}

	if len(exec.calls) != 1 || exec.calls[0].Name != "add_event" {
		t.Fatalf("executor calls = %+v", exec.calls)
	}

	// user, assistant(tool call), tool(result), assistant(text)
	if len(res.Messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(res.Messages))
	}
	toolMsg := res.Messages[2]
	if toolMsg.Role != "tool" || len(toolMsg.ToolResults) != 1 {
		t.Fatalf("tool message = %+v", toolMsg)
	}
	if toolMsg.ToolResults[0].ToolCallID != "c1" || toolMsg.ToolResults[0].IsError {
		t.Errorf("tool result = %+v", toolMsg.ToolResults[0])
	}
}

func TestProcessWithToolsFailureContinues(t *testing.T) {
	provider := &scriptedProvider{rounds: [][]ai.StreamEvent{
		{toolCallEvent("c1", "add_event", `{}`)},
		{{Type: ai.EventTypeText, Text: "That tool is unavailable right now."}},
	}}
	exec := &recordingExecutor{result: ToolResult{Success: false, Error: "MCP server not connected"}}

	res, err := ProcessWithTools(context.Background(), provider, &ai.ChatRequest{
		Messages: []ai.Message{{Role: "user", Content: "schedule a run"}},
	}, exec)
	if err != nil {
		t.Fatal(err)
	}

	toolMsg := res.Messages[2]
	if !toolMsg.ToolResults[0].IsError {
		t.Error("failed tool must surface as an error result")
	}
	if toolMsg.ToolResults[0].Content != "MCP server not connected" {
		t.Errorf("content = %q", toolMsg.ToolResults[0].Content)
	}
	if res.Truncated {
		t.Error("tool failure alone is not truncation")
	}
}

func TestProcessWithToolsIterationCap(t *testing.T) {
	// The model keeps asking for tools forever
	provider := &scriptedProvider{
		rounds: [][]ai.StreamEvent{{toolCallEvent("c", "loop_forever", `{}`)}},
	}
	exec := &recordingExecutor{result: ToolResult{Success: true, Result: "again"}}

	res, err := ProcessWithTools(context.Background(), provider, &ai.ChatRequest{
		Messages: []ai.Message{{Role: "user", Content: "go"}},
	}, exec)
	if err != nil {
		t.Fatal(err)
	}

	if res.Iterations != maxToolIterations {
		t.Errorf("iterations = %d, want %d", res.Iterations, maxToolIterations)
	}
	if !res.Truncated {
		t.Error("hitting the cap must set Truncated")
	}
	if len(exec.calls) != maxToolIterations {
		t.Errorf("executor calls = %d, want %d", len(exec.calls), maxToolIterations)
	}
}
