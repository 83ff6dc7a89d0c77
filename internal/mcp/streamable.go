package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/stridelabs/stride/internal/logging"
)

// maxSessionAge defines the maximum lifetime of a streamable session
// before forcing a reconnect.
const maxSessionAge = 30 * time.Minute

// headerTransport adds configured headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	for k, v := range t.headers {
		req2.Header.Set(k, v)
	}
	return t.base.RoundTrip(req2)
}

// streamableClient talks to a streamable-HTTP MCP server via the
// official SDK, caching one session and reconnecting when it goes stale.
type streamableClient struct {
	serverID string
	endpoint string
	headers  map[string]string

	mu        sync.Mutex
	session   *sdk.ClientSession
	createdAt time.Time
}

func newStreamableClient(sc ServerConfig) *streamableClient {
	return &streamableClient{
		serverID: sc.ID,
		endpoint: sc.URL,
		headers:  sc.Headers,
	}
}

// getOrCreateSession returns the cached session or dials a new one.
func (c *streamableClient) getOrCreateSession(ctx context.Context) (*sdk.ClientSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && time.Since(c.createdAt) <= maxSessionAge {
		return c.session, nil
	}
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}

	var rt http.RoundTripper = http.DefaultTransport
	if len(c.headers) > 0 {
		rt = &headerTransport{base: http.DefaultTransport, headers: c.headers}
	}

	transport := &sdk.StreamableClientTransport{
		Endpoint: c.endpoint,
		HTTPClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: rt,
		},
	}

	client := sdk.NewClient(&sdk.Implementation{
		Name:    "stride",
		Version: "1.0.0",
	}, &sdk.ClientOptions{
		KeepAlive: 30 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.endpoint, err)
	}

	c.session = session
	c.createdAt = time.Now()
	logging.Infof("mcp: streamable session established for %s at %s", c.serverID, c.endpoint)

	// Drop the cache entry when the session dies so the next call redials
	go func() {
		_ = session.Wait()
		c.mu.Lock()
		if c.session == session {
			c.session = nil
		}
		c.mu.Unlock()
		logging.Infof("mcp: streamable session closed for %s", c.serverID)
	}()

	return session, nil
}

func (c *streamableClient) dropSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
}

// ListTools fetches the tool list, reconnecting once on a stale session.
func (c *streamableClient) ListTools(ctx context.Context) ([]Tool, error) {
	ctx, cancel := context.WithTimeout(ctx, ListTimeout)
	defer cancel()

	session, err := c.getOrCreateSession(ctx)
	if err != nil {
		return nil, err
	}

	result, err := session.ListTools(ctx, nil)
	if err != nil {
		logging.Warnf("mcp: ListTools failed for %s, reconnecting: %v", c.serverID, err)
		c.dropSession()

		session, err = c.getOrCreateSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("reconnect: %w", err)
		}
		result, err = session.ListTools(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("list tools after reconnect: %w", err)
		}
	}

	tools := make([]Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = []byte(`{"type":"object"}`)
		}
		tools = append(tools, Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return tools, nil
}

// CallTool executes a tool, reconnecting once on a stale session.
func (c *streamableClient) CallTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	var arguments map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return "", fmt.Errorf("bad tool arguments: %w", err)
		}
	}

	session, err := c.getOrCreateSession(ctx)
	if err != nil {
		return "", err
	}

	params := &sdk.CallToolParams{Name: name, Arguments: arguments}
	result, err := session.CallTool(ctx, params)
	if err != nil {
		logging.Warnf("mcp: CallTool %s failed for %s, reconnecting: %v", name, c.serverID, err)
		c.dropSession()

		session, err = c.getOrCreateSession(ctx)
		if err != nil {
			return "", fmt.Errorf("reconnect: %w", err)
		}
		result, err = session.CallTool(ctx, params)
		if err != nil {
			return "", fmt.Errorf("call after reconnect: %w", err)
		}
	}

	var parts []string
	for _, block := range result.Content {
		if text, ok := block.(*sdk.TextContent); ok && text.Text != "" {
			parts = append(parts, text.Text)
		}
	}
	if result.IsError {
		msg := "tool reported an error"
		if len(parts) > 0 {
			msg = parts[0]
		}
		return "", fmt.Errorf("%s", msg)
	}
	if len(parts) == 0 {
		return "Tool executed successfully", nil
	}
	return strings.Join(parts, "\n"), nil
}

func (c *streamableClient) Close() error {
	c.dropSession()
	return nil
}
