package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/stridelabs/stride/internal/logging"
)

// client is the transport-level interface every connection satisfies.
type client interface {
	ListTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args json.RawMessage) (string, error)
	Close() error
}

// connection is one server's live state in the registry.
type connection struct {
	config    ServerConfig
	state     State
	lastError string
	tools     []Tool
	client    client
}

// Manager is the registry of MCP server connections. Servers move
// through Disconnected → Connecting → Connected or Failed; a crashed
// server stays Failed until explicitly reconnected.
type Manager struct {
	mu    sync.RWMutex
	cfg   *Config
	conns map[string]*connection
}

// NewManager builds a registry from a loaded config. Nothing connects
// until ConnectAll or Connect is called.
func NewManager(cfg *Config) *Manager {
	m := &Manager{
		cfg:   cfg,
		conns: make(map[string]*connection),
	}
	for _, sc := range cfg.Servers {
		m.conns[sc.ID] = &connection{config: sc, state: StateDisconnected}
	}
	return m
}

// Enabled reports whether MCP is enabled at all.
func (m *Manager) Enabled() bool {
	return m.cfg.Enabled
}

// ConnectAll connects every enabled server. Failures are recorded on
// the connection, not returned; one bad server never blocks the rest.
func (m *Manager) ConnectAll(ctx context.Context) {
	if !m.cfg.Enabled {
		return
	}

	var wg sync.WaitGroup
	for _, sc := range m.cfg.Servers {
		if !sc.Enabled {
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := m.Connect(ctx, id); err != nil {
				logging.Warnf("mcp: connect %s: %v", id, err)
			}
		}(sc.ID)
	}
	wg.Wait()
}

// Connect dials one server and lists its tools.
func (m *Manager) Connect(ctx context.Context, serverID string) error {
	m.mu.Lock()
	conn, ok := m.conns[serverID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown MCP server %q", serverID)
	}
	if conn.state == StateConnecting || conn.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	conn.state = StateConnecting
	conn.lastError = ""
	sc := conn.config
	m.mu.Unlock()

	cl, err := m.dial(ctx, sc)
	if err != nil {
		m.setFailed(serverID, err)
		return err
	}

	tools, err := cl.ListTools(ctx)
	if err != nil {
		cl.Close()
		m.setFailed(serverID, err)
		return err
	}

	m.mu.Lock()
	conn.state = StateConnected
	conn.client = cl
	conn.tools = tools
	m.mu.Unlock()

	logging.Infof("mcp: connected %s (%s), %d tools", serverID, sc.Transport, len(tools))
	return nil
}

func (m *Manager) dial(ctx context.Context, sc ServerConfig) (client, error) {
	switch sc.Transport {
	case "stdio":
		return newStdioClient(ctx, sc)
	case "http":
		cl := newHTTPClient(sc)
		return cl, nil
	case "streamable":
		return newStreamableClient(sc), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", sc.Transport)
	}
}

func (m *Manager) setFailed(serverID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn, ok := m.conns[serverID]; ok {
		conn.state = StateFailed
		conn.lastError = err.Error()
		conn.client = nil
		conn.tools = nil
	}
}

// Disconnect kills a server's connection and drops it back to
// Disconnected. No automatic reconnect.
func (m *Manager) Disconnect(serverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[serverID]
	if !ok {
		return
	}
	if conn.client != nil {
		conn.client.Close()
	}
	conn.client = nil
	conn.tools = nil
	conn.state = StateDisconnected
	conn.lastError = ""
}

// DisconnectAll tears down every connection.
func (m *Manager) DisconnectAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Disconnect(id)
	}
}

// Status reports every configured server's state, sorted by id.
func (m *Manager) Status() []ServerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ServerStatus, 0, len(m.conns))
	for id, conn := range m.conns {
		out = append(out, ServerStatus{
			ID:        id,
			Name:      conn.config.Name,
			Transport: conn.config.Transport,
			State:     conn.state,
			LastError: conn.lastError,
			ToolCount: len(conn.tools),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Tools returns the tools of all connected servers, sorted by server
// then tool name.
func (m *Manager) Tools() []Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Tool
	for _, id := range ids {
		conn := m.conns[id]
		if conn.state == StateConnected {
			out = append(out, conn.tools...)
		}
	}
	return out
}

// FindServerForTool resolves which connected server advertises a tool.
func (m *Manager) FindServerForTool(toolName string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		conn := m.conns[id]
		if conn.state != StateConnected {
			continue
		}
		for _, t := range conn.tools {
			if t.Name == toolName {
				return id, true
			}
		}
	}
	return "", false
}

// ToolSpecs renders all connected tools as an OpenAI-style
// function-calling array.
func (m *Manager) ToolSpecs() []ToolSpec {
	tools := m.Tools()
	out := make([]ToolSpec, 0, len(tools))
	for _, t := range tools {
		params := t.InputSchema
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out = append(out, ToolSpec{
			Type: "function",
			Function: FunctionSpec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// ExecuteTool runs a tool call against a server. It always returns a
// result value: a disconnected server yields an immediate failure, and
// transport errors become {success:false, error} rather than Go errors.
func (m *Manager) ExecuteTool(ctx context.Context, serverID string, call ToolCall) ToolResult {
	m.mu.RLock()
	conn, ok := m.conns[serverID]
	var cl client
	connected := false
	if ok {
		cl = conn.client
		connected = conn.state == StateConnected && cl != nil
	}
	m.mu.RUnlock()

	// Unregistered and disconnected ids fail the same way, immediately
	if !ok || !connected {
		return ToolResult{ToolCallID: call.ID, Success: false, Error: "MCP server not connected"}
	}

	result, err := cl.CallTool(ctx, call.Name, call.Arguments)
	if err != nil {
		return ToolResult{ToolCallID: call.ID, Success: false, Error: err.Error()}
	}
	return ToolResult{ToolCallID: call.ID, Success: true, Result: result}
}

// ExecuteToolByName resolves the server advertising the tool and runs
// the call there.
func (m *Manager) ExecuteToolByName(ctx context.Context, call ToolCall) ToolResult {
	serverID, ok := m.FindServerForTool(call.Name)
	if !ok {
		return ToolResult{ToolCallID: call.ID, Success: false, Error: fmt.Sprintf("no connected MCP server provides tool %q", call.Name)}
	}
	return m.ExecuteTool(ctx, serverID, call)
}
