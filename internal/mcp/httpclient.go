package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// httpClient talks to a REST-style MCP server: GET {url}/tools for
// liveness and tool listing, POST {url}/tools/call for execution.
type httpClient struct {
	baseURL string
	headers map[string]string
	client  *http.Client
}

func newHTTPClient(sc ServerConfig) *httpClient {
	return &httpClient{
		baseURL: strings.TrimRight(sc.URL, "/"),
		headers: sc.Headers,
		client:  &http.Client{},
	}
}

func (c *httpClient) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}

// ListTools probes GET /tools; a reachable server with a valid tool list
// counts as connected.
func (c *httpClient) ListTools(ctx context.Context) ([]Tool, error) {
	ctx, cancel := context.WithTimeout(ctx, ListTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, "/tools", nil)
	if err != nil {
		return nil, fmt.Errorf("GET /tools: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET /tools: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET /tools: %w", err)
	}

	// Accept both a bare array and a {tools: [...]} wrapper
	var tools []Tool
	if err := json.Unmarshal(data, &tools); err == nil {
		return tools, nil
	}
	var wrapped struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("GET /tools: bad response: %w", err)
	}
	return wrapped.Tools, nil
}

// CallTool posts to /tools/call.
func (c *httpClient) CallTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]any{
		"name":      name,
		"arguments": json.RawMessage(nonEmptyJSON(args)),
	})
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, http.MethodPost, "/tools/call", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("POST /tools/call: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("POST /tools/call: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("POST /tools/call: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return flattenContent(data), nil
}

func (c *httpClient) Close() error { return nil }

func nonEmptyJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}
