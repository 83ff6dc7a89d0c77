package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stridelabs/stride/internal/config"
)

func writeFixture(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	root := t.TempDir()

	writeFixture(t, root, "profiles/jess/profile.md", "**Name:** Jess\n\n## Goal\nRun more.\n")
	writeFixture(t, root, "skills/pep-talk/SKILL.md", `---
name: pep-talk
description: Encouragement when motivation dips
triggers: [motivation, "feeling stuck"]
---

Give a short, specific pep talk.
`)
	writeFixture(t, root, "commands/checkin.md", `---
name: checkin
description: Record a daily check-in
---

Walk the user through today's check-in.
`)
	writeFixture(t, root, "prompts/weekly-planning.md", `---
name: weekly-planning
description: Structure a weekly plan
keywords: [plan, week, schedule]
intent: ["plan my week"]
category: planning
priority: 7
---

Help the user lay out the week ahead.
`)

	cfg := config.DefaultConfig()
	cfg.DataDir = root
	cfg.Cache.SkillTTL = time.Minute
	cfg.Cache.PromptTTL = time.Minute
	cfg.Cache.CapabilityTTL = time.Minute

	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	var body map[string]string
	resp := getJSON(t, ts.URL+"/healthz", &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", resp.StatusCode, body)
	}
}

func TestGetContext(t *testing.T) {
	ts := newTestServer(t)

	var uc struct {
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
		CurrentDate string `json:"currentDate"`
	}
	resp := getJSON(t, ts.URL+"/api/context/jess", &uc)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if uc.Profile.Name != "Jess" {
		t.Errorf("profile name = %q", uc.Profile.Name)
	}
	if uc.CurrentDate == "" {
		t.Error("currentDate missing")
	}
}

func TestChatContext(t *testing.T) {
	ts := newTestServer(t)

	payload := `{"profileId":"jess","message":"I need some motivation today"}`
	resp, err := http.Post(ts.URL+"/api/chat/context", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		SystemPrompt string `json:"systemPrompt"`
		Skill        *struct {
			ID string `json:"id"`
		} `json:"skill"`
		Tools    []any `json:"tools"`
		MCPTools []any `json:"mcpTools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(body.SystemPrompt, "Today is") {
		t.Error("system prompt missing date line")
	}
	if body.Skill == nil || body.Skill.ID != "pep-talk" {
		t.Errorf("skill = %+v, want pep-talk", body.Skill)
	}
	if body.MCPTools == nil {
		t.Error("mcpTools must be present even with MCP disabled")
	}
}

func TestChatContextValidation(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/chat/context", "application/json", strings.NewReader(`{"message":"hi"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing profileId should 400, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/chat/context", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad body should 400, got %d", resp.StatusCode)
	}
}

func TestPreload(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/context/preload", "application/json",
		strings.NewReader(`{"profileId":"jess"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Preloaded bool `json:"preloaded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Preloaded {
		t.Error("preload should report success")
	}
}

func TestMCPStatusDisabled(t *testing.T) {
	ts := newTestServer(t)

	var body struct {
		Enabled bool  `json:"enabled"`
		Servers []any `json:"servers"`
	}
	resp := getJSON(t, ts.URL+"/api/mcp/status", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Enabled {
		t.Error("no mcp-config.json means disabled")
	}
}

func TestToolCallUnknownServer(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/mcp/tools/ghost/call", "application/json",
		strings.NewReader(`{"name":"add_event"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tool failures ride in the body, status = %d", resp.StatusCode)
	}

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Success || result.Error == "" {
		t.Errorf("result = %+v", result)
	}
}

func TestListSkills(t *testing.T) {
	ts := newTestServer(t)

	var body struct {
		Skills []struct {
			ID string `json:"id"`
		} `json:"skills"`
		Commands []struct {
			ID string `json:"id"`
		} `json:"commands"`
	}
	resp := getJSON(t, ts.URL+"/api/skills", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(body.Skills) != 1 || body.Skills[0].ID != "pep-talk" {
		t.Errorf("skills = %+v", body.Skills)
	}
	if len(body.Commands) != 1 || body.Commands[0].ID != "checkin" {
		t.Errorf("commands = %+v", body.Commands)
	}
}

func TestPromptMatch(t *testing.T) {
	ts := newTestServer(t)

	var body struct {
		Primary *struct {
			ID string `json:"id"`
		} `json:"primary"`
		Categories []string `json:"categories"`
	}
	resp := getJSON(t, ts.URL+"/api/prompts/match?q=help+me+plan+my+week", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Primary == nil || body.Primary.ID != "weekly-planning" {
		t.Errorf("primary = %+v", body.Primary)
	}

	resp = getJSON(t, ts.URL+"/api/prompts/match", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing q should 400, got %d", resp.StatusCode)
	}
}

func TestContextPreview(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/context/jess/preview")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), "<h2") {
		t.Error("preview should render markdown headings to HTML")
	}
}
