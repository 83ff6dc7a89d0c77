package capabilities

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleFile = `{
  "agents": {
    "coach": {"tools": ["calendar", "todo"], "mcpServers": ["memory"], "model": "gpt-4.1"},
    "planner": {"tools": ["todo", "notes"], "mcpServers": ["memory", "search"]}
  },
  "globalDefaults": {"tools": ["todo"], "model": "gpt-4o-mini"}
}`

func writeCapabilities(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent-capabilities.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLookup(t *testing.T) {
	r := NewResolver(writeCapabilities(t, sampleFile), time.Minute)

	got := r.Lookup("coach")
	wantTools := []string{"calendar", "todo"}
	if len(got.Tools) != len(wantTools) {
		t.Fatalf("tools = %v, want %v", got.Tools, wantTools)
	}
	for i, w := range wantTools {
		if got.Tools[i] != w {
			t.Errorf("tools[%d] = %q, want %q", i, got.Tools[i], w)
		}
	}
	if got.Model != "gpt-4.1" {
		t.Errorf("model = %q, want agent override", got.Model)
	}

	unknown := r.Lookup("nobody")
	if len(unknown.Tools) != 1 || unknown.Tools[0] != "todo" {
		t.Errorf("unknown agent tools = %v, want global defaults", unknown.Tools)
	}
	if unknown.Model != "gpt-4o-mini" {
		t.Errorf("unknown agent model = %q, want default", unknown.Model)
	}
}

func TestCombined(t *testing.T) {
	r := NewResolver(writeCapabilities(t, sampleFile), time.Minute)

	got := r.Combined([]string{"coach", "planner"})
	wantTools := []string{"calendar", "notes", "todo"}
	if len(got.Tools) != len(wantTools) {
		t.Fatalf("tools = %v, want %v", got.Tools, wantTools)
	}
	for i, w := range wantTools {
		if got.Tools[i] != w {
			t.Errorf("tools[%d] = %q, want %q", i, got.Tools[i], w)
		}
	}
	wantServers := []string{"memory", "search"}
	for i, w := range wantServers {
		if got.MCPServers[i] != w {
			t.Errorf("servers[%d] = %q, want %q", i, got.MCPServers[i], w)
		}
	}
	if got.Model != "gpt-4.1" {
		t.Errorf("model = %q, want first agent override", got.Model)
	}
}

func TestMissingFile(t *testing.T) {
	r := NewResolver(filepath.Join(t.TempDir(), "missing.json"), time.Minute)
	got := r.Lookup("coach")
	if len(got.Tools) != 0 || len(got.MCPServers) != 0 || got.Model != "" {
		t.Errorf("missing file should yield empty capability, got %+v", got)
	}
}

func TestTTLCacheHit(t *testing.T) {
	r := NewResolver(writeCapabilities(t, sampleFile), time.Minute)

	r.Lookup("coach")
	r.Lookup("planner")
	r.Combined([]string{"coach", "planner"})
	if n := r.FileReads(); n != 1 {
		t.Errorf("file reads within TTL = %d, want 1", n)
	}

	r.Invalidate()
	r.Lookup("coach")
	if n := r.FileReads(); n != 2 {
		t.Errorf("file reads after invalidate = %d, want 2", n)
	}
}

func TestAllowsServer(t *testing.T) {
	c := Capability{MCPServers: []string{"memory"}}
	if !c.AllowsServer("memory") {
		t.Error("listed server should be allowed")
	}
	if c.AllowsServer("search") {
		t.Error("unlisted server should be denied")
	}
	if !(Capability{}).AllowsServer("anything") {
		t.Error("empty list means unrestricted")
	}
}
