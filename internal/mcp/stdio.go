package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stridelabs/stride/internal/logging"
)

// jsonrpcRequest is a JSON-RPC 2.0 request.
type jsonrpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *jsonrpcError) Error() string { return e.Message }

// stdioClient speaks line-delimited JSON-RPC 2.0 with an MCP server
// subprocess. A single persistent reader goroutine dispatches responses
// to waiting callers by request id, so interleaved and out-of-order
// replies are handled correctly.
type stdioClient struct {
	serverID string
	cmd      *exec.Cmd
	stdin    io.WriteCloser

	writeMu sync.Mutex
	writer  *bufio.Writer

	pendingMu sync.Mutex
	pending   map[int64]chan *jsonrpcResponse

	nextID atomic.Int64

	readyOnce sync.Once
	ready     chan struct{}
	done      chan struct{}
	exitErr   error
}

// newStdioClient spawns the configured command and waits for the server
// to become ready: the first byte on stdout wins against process exit
// and the connect timeout, whichever comes first.
func newStdioClient(ctx context.Context, sc ServerConfig) (*stdioClient, error) {
	cmd := exec.Command(sc.Command, sc.Args...)
	cmd.Env = os.Environ()
	for k, v := range sc.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", sc.Command, err)
	}

	c := &stdioClient{
		serverID: sc.ID,
		cmd:      cmd,
		stdin:    stdin,
		writer:   bufio.NewWriter(stdin),
		pending:  make(map[int64]chan *jsonrpcResponse),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}

	go c.readStderr(stderr)
	go c.readLoop(stdout)

	// The server announces itself by answering initialize; fire it
	// without waiting so the ready race has something to observe.
	if err := c.writeRequest(jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{},
			"clientInfo": map[string]any{
				"name":    "stride",
				"version": "1.0.0",
			},
		},
	}); err != nil {
		c.Close()
		return nil, fmt.Errorf("send initialize: %w", err)
	}

	select {
	case <-c.ready:
		return c, nil
	case <-c.done:
		c.Close()
		return nil, fmt.Errorf("server exited before ready: %w", c.exitErr)
	case <-time.After(ConnectTimeout):
		c.Close()
		return nil, fmt.Errorf("server %s not ready after %s", sc.ID, ConnectTimeout)
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	}
}

func (c *stdioClient) readStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		logging.Debugf("mcp %s stderr: %s", c.serverID, scanner.Text())
	}
}

// readLoop owns stdout for the life of the subprocess. Ready is
// signalled on the first stdout byte, before any full line arrives.
// Non-JSON lines (server logs on stdout) are skipped.
func (c *stdioClient) readLoop(stdout io.Reader) {
	reader := bufio.NewReader(stdout)
	if _, err := reader.Peek(1); err == nil {
		c.readyOnce.Do(func() { close(c.ready) })
	}
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			c.readyOnce.Do(func() { close(c.ready) })
		}
		if err != nil {
			c.exitErr = c.cmd.Wait()
			if c.exitErr == nil {
				c.exitErr = err
			}
			c.failAllPending()
			close(c.done)
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var resp jsonrpcResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			logging.Debugf("mcp %s: skipping non-JSON line: %s", c.serverID, line)
			continue
		}

		c.pendingMu.Lock()
		ch := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.pendingMu.Unlock()

		if ch != nil {
			ch <- &resp
		}
	}
}

func (c *stdioClient) failAllPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *stdioClient) writeRequest(req jsonrpcRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.writer.Write(data); err != nil {
		return err
	}
	if err := c.writer.WriteByte('\n'); err != nil {
		return err
	}
	return c.writer.Flush()
}

// call sends one request and waits for its correlated response.
func (c *stdioClient) call(ctx context.Context, method string, params map[string]any, timeout time.Duration) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	ch := make(chan *jsonrpcResponse, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	cleanup := func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}

	if err := c.writeRequest(jsonrpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		cleanup()
		return nil, fmt.Errorf("%s: write: %w", method, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%s: server exited: %v", method, c.exitErr)
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("%s: %w", method, resp.Error)
		}
		return resp.Result, nil
	case <-timer.C:
		cleanup()
		return nil, fmt.Errorf("%s: timeout after %s", method, timeout)
	case <-c.done:
		cleanup()
		return nil, fmt.Errorf("%s: server exited: %v", method, c.exitErr)
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	}
}

// ListTools issues tools/list.
func (c *stdioClient) ListTools(ctx context.Context) ([]Tool, error) {
	result, err := c.call(ctx, "tools/list", nil, ListTimeout)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("tools/list: bad response: %w", err)
	}
	return parsed.Tools, nil
}

// CallTool issues tools/call and flattens the content blocks to text.
func (c *stdioClient) CallTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	var arguments map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return "", fmt.Errorf("tools/call: bad arguments: %w", err)
		}
	}

	result, err := c.call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": arguments,
	}, CallTimeout)
	if err != nil {
		return "", err
	}
	return flattenContent(result), nil
}

// Close kills the subprocess. No automatic respawn.
func (c *stdioClient) Close() error {
	c.stdin.Close()
	if c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}

// flattenContent extracts the text of an MCP content-block result.
// Side-effect tools may return no content at all.
func flattenContent(result json.RawMessage) string {
	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil || len(parsed.Content) == 0 {
		if s := strings.TrimSpace(string(result)); s != "" && s != "{}" && s != "null" {
			return s
		}
		return "Tool executed successfully"
	}

	var parts []string
	for _, block := range parsed.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "Tool executed successfully"
	}
	return strings.Join(parts, "\n")
}
