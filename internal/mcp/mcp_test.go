package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "mcp-config.json"))
	if err != nil {
		t.Fatalf("missing config should not error: %v", err)
	}
	if cfg.Enabled {
		t.Error("missing config should yield disabled defaults")
	}
	if len(cfg.Servers) != 0 {
		t.Errorf("expected no servers, got %d", len(cfg.Servers))
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp-config.json")
	in := &Config{
		Enabled: true,
		Servers: []ServerConfig{
			{ID: "memory", Transport: "stdio", Command: "mcp-memory", Enabled: true},
		},
	}
	if err := SaveConfig(path, in); err != nil {
		t.Fatal(err)
	}

	out, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Enabled || len(out.Servers) != 1 || out.Servers[0].ID != "memory" {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if out.LastUpdated.IsZero() {
		t.Error("SaveConfig should stamp LastUpdated")
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp-config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("malformed config should error")
	}
}

func TestFlattenContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single text block", `{"content":[{"type":"text","text":"hello"}]}`, "hello"},
		{"multiple blocks", `{"content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}`, "a\nb"},
		{"empty content", `{"content":[]}`, "Tool executed successfully"},
		{"empty object", `{}`, "Tool executed successfully"},
		{"bare result", `{"ok":true}`, `{"ok":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flattenContent(json.RawMessage(tt.in)); got != tt.want {
				t.Errorf("flattenContent(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func newToolServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tools", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"tools": []map[string]any{
				{"name": "add_event", "description": "Add a calendar event", "inputSchema": map[string]any{"type": "object"}},
			},
		})
	})
	mux.HandleFunc("POST /tools/call", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Name != "add_event" {
			http.Error(w, "unknown tool", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "event added"}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient(t *testing.T) {
	srv := newToolServer(t)
	cl := newHTTPClient(ServerConfig{ID: "cal", Transport: "http", URL: srv.URL})

	tools, err := cl.ListTools(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tools) != 1 || tools[0].Name != "add_event" {
		t.Fatalf("tools = %+v", tools)
	}

	got, err := cl.CallTool(context.Background(), "add_event", json.RawMessage(`{"title":"standup"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got != "event added" {
		t.Errorf("CallTool = %q", got)
	}

	if _, err := cl.CallTool(context.Background(), "nope", nil); err == nil {
		t.Error("unknown tool should error")
	}
}

func TestManagerConnectHTTP(t *testing.T) {
	srv := newToolServer(t)
	m := NewManager(&Config{
		Enabled: true,
		Servers: []ServerConfig{
			{ID: "cal", Transport: "http", URL: srv.URL, Enabled: true},
		},
	})

	m.ConnectAll(context.Background())

	status := m.Status()
	if len(status) != 1 || status[0].State != StateConnected {
		t.Fatalf("status = %+v", status)
	}
	if status[0].ToolCount != 1 {
		t.Errorf("tool count = %d, want 1", status[0].ToolCount)
	}

	specs := m.ToolSpecs()
	if len(specs) != 1 || specs[0].Type != "function" || specs[0].Function.Name != "add_event" {
		t.Fatalf("tool specs = %+v", specs)
	}

	if id, ok := m.FindServerForTool("add_event"); !ok || id != "cal" {
		t.Errorf("FindServerForTool = %q, %v", id, ok)
	}

	r := m.ExecuteToolByName(context.Background(), ToolCall{ID: "c1", Name: "add_event", Arguments: json.RawMessage(`{}`)})
	if !r.Success || r.Result != "event added" {
		t.Errorf("result = %+v", r)
	}
	if r.Success && r.Error != "" {
		t.Error("success result must not carry an error")
	}
}

func TestManagerConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewManager(&Config{
		Enabled: true,
		Servers: []ServerConfig{{ID: "bad", Transport: "http", URL: srv.URL, Enabled: true}},
	})
	m.ConnectAll(context.Background())

	status := m.Status()
	if status[0].State != StateFailed {
		t.Fatalf("state = %s, want failed", status[0].State)
	}
	if status[0].LastError == "" {
		t.Error("failed server should record its last error")
	}
}

func TestExecuteToolNotConnected(t *testing.T) {
	m := NewManager(&Config{
		Enabled: true,
		Servers: []ServerConfig{{ID: "cal", Transport: "http", URL: "http://localhost:1", Enabled: true}},
	})

	r := m.ExecuteTool(context.Background(), "cal", ToolCall{ID: "c1", Name: "add_event"})
	if r.Success {
		t.Fatal("disconnected server must fail")
	}
	if r.Error != "MCP server not connected" {
		t.Errorf("error = %q", r.Error)
	}
	if r.ToolCallID != "c1" {
		t.Errorf("tool call id = %q", r.ToolCallID)
	}
}

func TestExecuteToolUnknownServer(t *testing.T) {
	m := NewManager(&Config{Enabled: true})
	r := m.ExecuteTool(context.Background(), "ghost", ToolCall{ID: "c1", Name: "x"})
	if r.Success {
		t.Fatal("unknown server must fail")
	}
	// Unregistered ids report the same immediate error as disconnected ones
	if r.Error != "MCP server not connected" {
		t.Errorf("error = %q", r.Error)
	}
}

func TestDisconnect(t *testing.T) {
	srv := newToolServer(t)
	m := NewManager(&Config{
		Enabled: true,
		Servers: []ServerConfig{{ID: "cal", Transport: "http", URL: srv.URL, Enabled: true}},
	})
	m.ConnectAll(context.Background())

	m.Disconnect("cal")
	if st := m.Status()[0]; st.State != StateDisconnected || st.ToolCount != 0 {
		t.Errorf("after disconnect: %+v", st)
	}

	r := m.ExecuteTool(context.Background(), "cal", ToolCall{ID: "c2", Name: "add_event"})
	if r.Success || r.Error != "MCP server not connected" {
		t.Errorf("result after disconnect = %+v", r)
	}
}

// cat echoes our requests straight back, which exercises the ready race
// and the id-keyed dispatch without needing a real MCP server binary.
func TestStdioClientReady(t *testing.T) {
	c, err := newStdioClient(context.Background(), ServerConfig{
		ID:        "echo",
		Transport: "stdio",
		Command:   "cat",
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	// The echoed request correlates by id but carries no result payload
	got, err := c.CallTool(context.Background(), "noop", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Tool executed successfully" {
		t.Errorf("CallTool = %q", got)
	}
}

func TestStdioClientReadyOnFirstByte(t *testing.T) {
	// A server that emits a partial line (no trailing newline) must still
	// win the ready race on its first stdout byte
	start := time.Now()
	c, err := newStdioClient(context.Background(), ServerConfig{
		ID:        "partial",
		Transport: "stdio",
		Command:   "sh",
		Args:      []string{"-c", "printf '{'; sleep 30"},
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	if elapsed := time.Since(start); elapsed > ConnectTimeout/2 {
		t.Errorf("ready took %s, should not wait for a full line", elapsed)
	}
}

func TestStdioClientExitBeforeReady(t *testing.T) {
	_, err := newStdioClient(context.Background(), ServerConfig{
		ID:        "dead",
		Transport: "stdio",
		Command:   "false",
	})
	if err == nil {
		t.Fatal("command that exits immediately should fail to connect")
	}
}
