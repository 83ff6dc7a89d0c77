package loader

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stridelabs/stride/internal/coach/prompts"
	"github.com/stridelabs/stride/internal/coach/userctx"
	"github.com/stridelabs/stride/internal/logging"
	"github.com/stridelabs/stride/internal/mcp"
)

const defaultMaxPrompts = 3

// LoadContextParallel fans out every branch concurrently and joins with
// all-settled semantics: each branch recovers its own panic and settles
// to a typed fallback, so the group never fails fast and the aggregate
// is always complete.
func (s *Service) LoadContextParallel(ctx context.Context, opts Options) *Result {
	start := time.Now()

	res := &Result{}
	agentID := primaryAgent(opts.AgentIDs)
	maxPrompts := opts.MaxPrompts
	if maxPrompts <= 0 {
		maxPrompts = defaultMaxPrompts
	}

	var g errgroup.Group

	g.Go(settled("context", func() {
		if s.Builder != nil {
			res.Context = s.Builder.Build(opts.ProfileID)
		}
	}))
	g.Go(settled("profile", func() {
		if s.Builder != nil {
			res.Profile = s.Builder.Profile(opts.ProfileID)
		}
	}))

	if opts.Message != "" {
		g.Go(settled("skill", func() {
			if s.Skills != nil {
				res.Skill = s.Skills.Match(opts.Message, agentID)
			}
		}))
		g.Go(settled("prompts", func() {
			if s.Prompts != nil {
				res.Prompts = s.Prompts.Match(opts.Message, maxPrompts)
			}
		}))
	}

	g.Go(settled("capabilities", func() {
		if s.Caps != nil {
			res.Capabilities = s.Caps.Combined(opts.AgentIDs)
		}
	}))

	g.Go(settled("mcp-tools", func() {
		if s.MCP != nil {
			res.MCPTools = s.MCP.Tools()
		}
	}))
	g.Go(settled("mcp-status", func() {
		if s.MCP != nil {
			res.MCPStatus = s.MCP.Status()
		}
	}))

	if len(opts.Attachments) > 0 {
		res.Files = make([]ProcessedFile, len(opts.Attachments))
		for i, att := range opts.Attachments {
			g.Go(settled("file "+att.Name, func() {
				res.Files[i] = ProcessAttachment(att, opts.Message)
			}))
		}
	}

	// Branches swallow their own failures, so Wait never errors
	_ = g.Wait()

	fillFallbacks(res)
	res.LoadTime = time.Since(start)
	return res
}

// settled wraps a branch so a panic settles it to its fallback instead
// of taking down the process or cancelling siblings.
func settled(name string, fn func()) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				logging.Warnf("loader: %s branch panicked: %v", name, r)
			}
		}()
		fn()
		return nil
	}
}

// fillFallbacks normalizes the aggregate so callers never see nils.
func fillFallbacks(res *Result) {
	if res.Context == nil {
		res.Context = &userctx.UserContext{
			CurrentDate: time.Now().Format("2006-01-02"),
		}
	}
	if res.Prompts == nil {
		res.Prompts = &prompts.MatchResult{}
	}
	if res.MCPTools == nil {
		res.MCPTools = []mcp.Tool{}
	}
	if res.MCPStatus == nil {
		res.MCPStatus = []mcp.ServerStatus{}
	}
}

func primaryAgent(agentIDs []string) string {
	if len(agentIDs) == 0 {
		return "unified"
	}
	return agentIDs[0]
}
