// Package mcp manages connections to Model Context Protocol servers and
// exposes their tools to the chat pipeline. Three transports are
// supported: stdio subprocesses speaking line-delimited JSON-RPC 2.0,
// plain REST servers, and streamable-HTTP servers via the official SDK.
package mcp

import (
	"encoding/json"
	"time"
)

// State is a server's connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
)

// Protocol timeouts.
const (
	ConnectTimeout = 10 * time.Second
	ListTimeout    = 5 * time.Second
	CallTimeout    = 30 * time.Second
)

// ServerConfig describes one MCP server from mcp-config.json.
type ServerConfig struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Transport string `json:"transport"` // "stdio", "http", "streamable"
	Enabled   bool   `json:"enabled"`

	// stdio transport
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`

	// http / streamable transports
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Config is the on-disk shape of mcp-config.json.
type Config struct {
	Enabled     bool           `json:"enabled"`
	Servers     []ServerConfig `json:"servers"`
	LastUpdated time.Time      `json:"lastUpdated,omitempty"`
}

// Tool is a tool advertised by a connected server.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ToolCall is a request to execute one tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult is the outcome of a tool execution. Exactly one of
// Result/Error is meaningful, discriminated by Success; executions
// never surface as Go errors to the loop.
type ToolResult struct {
	ToolCallID string `json:"toolCallId"`
	Success    bool   `json:"success"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ServerStatus is one server's externally visible state.
type ServerStatus struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Transport string `json:"transport"`
	State     State  `json:"state"`
	LastError string `json:"lastError,omitempty"`
	ToolCount int    `json:"toolCount"`
}

// FunctionSpec is the inner function object of an OpenAI-style tool entry.
type FunctionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolSpec is one entry of the OpenAI-style function-calling tool array.
type ToolSpec struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}
