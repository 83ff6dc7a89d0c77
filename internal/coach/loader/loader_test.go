package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stridelabs/stride/internal/coach/capabilities"
	"github.com/stridelabs/stride/internal/coach/prompts"
	"github.com/stridelabs/stride/internal/coach/skills"
	"github.com/stridelabs/stride/internal/coach/userctx"
	"github.com/stridelabs/stride/internal/mcp"
)

type fakeBuilder struct {
	calls atomic.Int64
	delay time.Duration
}

func (b *fakeBuilder) Build(profileID string) *userctx.UserContext {
	b.calls.Add(1)
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	return &userctx.UserContext{
		Profile:     userctx.Profile{ID: profileID, Name: "Jess"},
		CurrentDate: "2026-03-10",
	}
}

func (b *fakeBuilder) Profile(profileID string) userctx.Profile {
	return userctx.Profile{ID: profileID, Name: "Jess"}
}

type panickingMatcher struct{}

func (panickingMatcher) Match(message, agentID string) *skills.Skill {
	panic("matcher blew up")
}

type fakePrompts struct{}

func (fakePrompts) Match(query string, maxResults int) *prompts.MatchResult {
	return &prompts.MatchResult{Categories: []string{"planning"}}
}

type fakeCaps struct{}

func (fakeCaps) Combined(agentIDs []string) capabilities.Capability {
	return capabilities.Capability{Tools: []string{"todo"}}
}

type downMCP struct{}

func (downMCP) Tools() []mcp.Tool { panic("registry unavailable") }
func (downMCP) Status() []mcp.ServerStatus {
	return []mcp.ServerStatus{{ID: "cal", State: mcp.StateFailed, LastError: "dial refused"}}
}

func TestLoadContextParallelAllSettled(t *testing.T) {
	s := &Service{
		Builder: &fakeBuilder{},
		Skills:  panickingMatcher{},
		Prompts: fakePrompts{},
		Caps:    fakeCaps{},
		MCP:     downMCP{},
	}

	res := s.LoadContextParallel(context.Background(), Options{
		ProfileID: "jess",
		AgentIDs:  []string{"coach"},
		Message:   "plan my week",
	})

	// A panicking skill matcher and an unreachable MCP registry must
	// not take out the other branches
	if res.Context == nil || res.Context.Profile.Name != "Jess" {
		t.Errorf("context branch = %+v", res.Context)
	}
	if res.Profile.ID != "jess" {
		t.Errorf("profile branch = %+v", res.Profile)
	}
	if res.Skill != nil {
		t.Error("panicked skill branch should settle to nil")
	}
	if res.Prompts == nil || len(res.Prompts.Categories) != 1 {
		t.Errorf("prompts branch = %+v", res.Prompts)
	}
	if len(res.Capabilities.Tools) != 1 {
		t.Errorf("capabilities branch = %+v", res.Capabilities)
	}
	if res.MCPTools == nil || len(res.MCPTools) != 0 {
		t.Errorf("panicked tools branch should settle to empty, got %v", res.MCPTools)
	}
	if len(res.MCPStatus) != 1 || res.MCPStatus[0].State != mcp.StateFailed {
		t.Errorf("status branch = %+v", res.MCPStatus)
	}
	if res.LoadTime <= 0 {
		t.Error("load time must be recorded")
	}
}

func TestLoadContextParallelNoCollaborators(t *testing.T) {
	s := &Service{}
	res := s.LoadContextParallel(context.Background(), Options{Message: "hi"})

	if res.Context == nil || res.Context.CurrentDate == "" {
		t.Errorf("fallback context = %+v", res.Context)
	}
	if res.Prompts == nil || res.MCPTools == nil || res.MCPStatus == nil {
		t.Error("fallbacks must be non-nil")
	}
}

func TestLoadContextParallelSkipsSkillWithoutMessage(t *testing.T) {
	s := &Service{Builder: &fakeBuilder{}, Skills: panickingMatcher{}}
	res := s.LoadContextParallel(context.Background(), Options{ProfileID: "jess"})
	if res.Skill != nil {
		t.Error("no message means no skill matching")
	}
}

func TestLoadContextParallelAttachments(t *testing.T) {
	s := &Service{Builder: &fakeBuilder{}}
	res := s.LoadContextParallel(context.Background(), Options{
		ProfileID: "jess",
		Message:   "protein",
		Attachments: []Attachment{
			{Name: "meals.txt", Content: "Protein shake recipe.\n\nGrocery list for the week."},
		},
	})

	if len(res.Files) != 1 || res.Files[0].Name != "meals.txt" {
		t.Fatalf("files = %+v", res.Files)
	}
	if len(res.Files[0].Chunks) == 0 {
		t.Error("attachment should be chunked")
	}
}

func TestBatchAPICallsParallelWindows(t *testing.T) {
	var active, peak atomic.Int64
	var mu sync.Mutex
	var progress []int

	calls := make([]BatchCall, 5)
	for i := range calls {
		i := i
		calls[i] = func(ctx context.Context) (any, error) {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			if i == 3 {
				return nil, errors.New("call 3 failed")
			}
			return i * 10, nil
		}
	}

	results := BatchAPICallsParallel(context.Background(), calls, BatchOptions{
		MaxConcurrent: 2,
		OnProgress: func(done, total int) {
			mu.Lock()
			progress = append(progress, done)
			mu.Unlock()
		},
	})

	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
	if len(results) != 5 {
		t.Fatalf("results = %d", len(results))
	}
	if results[3].Err == nil {
		t.Error("failing call must settle with its error")
	}
	if results[4].Err != nil || results[4].Value != 40 {
		t.Errorf("call after failure = %+v", results[4])
	}
	if len(progress) != 5 || progress[len(progress)-1] != 5 {
		t.Errorf("progress = %v", progress)
	}
}

func TestPreloadDedup(t *testing.T) {
	b := &fakeBuilder{delay: 30 * time.Millisecond}
	s := &Service{Builder: b}

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Preload(context.Background(), Options{ProfileID: "jess"})
		}(i)
	}
	wg.Wait()

	if n := b.calls.Load(); n != 1 {
		t.Errorf("builder calls = %d, want 1 (in-flight dedup)", n)
	}
	for i, r := range results {
		if r != results[0] {
			t.Fatalf("caller %d got a different result instance", i)
		}
	}

	if s.Preloaded() != results[0] {
		t.Error("Preloaded should return the settled result")
	}

	s.ClearPreloaded()
	if s.Preloaded() != nil {
		t.Error("ClearPreloaded should drop the result")
	}
	s.Preload(context.Background(), Options{ProfileID: "jess"})
	if n := b.calls.Load(); n != 2 {
		t.Errorf("builder calls after clear = %d, want 2", n)
	}
}

func TestDebouncedCall(t *testing.T) {
	s := &Service{}
	var invocations atomic.Int64

	fn := func() (any, error) {
		invocations.Add(1)
		time.Sleep(10 * time.Millisecond)
		return "shared", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.DebouncedCall("weather", 50*time.Millisecond, fn)
			if err != nil || v != "shared" {
				t.Errorf("debounced call = %v, %v", v, err)
			}
		}()
	}
	wg.Wait()

	if n := invocations.Load(); n != 1 {
		t.Errorf("invocations = %d, want 1", n)
	}

	// Different key runs independently
	s.DebouncedCall("other", 50*time.Millisecond, fn)
	if n := invocations.Load(); n != 2 {
		t.Errorf("invocations = %d, want 2", n)
	}
}

func TestDebouncedCallGC(t *testing.T) {
	s := &Service{}
	window := 20 * time.Millisecond

	s.DebouncedCall("k", window, func() (any, error) { return 1, nil })
	if s.debouncedLen() != 1 {
		t.Fatalf("entries = %d, want 1", s.debouncedLen())
	}

	deadline := time.Now().Add(time.Second)
	for s.debouncedLen() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("entry not garbage-collected after 2x window")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestChunkText(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&sb, "Paragraph %d. %s\n\n", i, strings.Repeat("word ", 60))
	}

	chunks := ChunkText(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("long text should split into multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}

	if got := ChunkText("  \n  "); got != nil {
		t.Errorf("blank input should yield no chunks, got %v", got)
	}
	if got := ChunkText("short note"); len(got) != 1 || got[0] != "short note" {
		t.Errorf("short input = %v", got)
	}
}

func TestRelevantChunks(t *testing.T) {
	chunks := []string{
		"Notes about the garden and tomatoes.",
		"Training plan for the half marathon race.",
		"Grocery list with protein and oats.",
		"Random thoughts about weekend plans.",
	}

	got := RelevantChunks(chunks, "half marathon training", 2)
	if len(got) != 2 {
		t.Fatalf("got %d chunks", len(got))
	}
	if got[0] != chunks[1] {
		t.Errorf("most relevant chunk missing: %v", got)
	}

	// Order preserved for equally scored leading picks
	all := RelevantChunks(chunks, "", 2)
	if len(all) != 2 || all[0] != chunks[0] {
		t.Errorf("empty query should keep leading chunks: %v", all)
	}
}
