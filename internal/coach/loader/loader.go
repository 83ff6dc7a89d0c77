// Package loader assembles everything a chat turn needs (user context,
// matched skill, ranked prompts, MCP tools, agent capabilities, file
// chunks) with a concurrent all-settled fan-out: every branch settles
// independently to a value or its fallback, so one failing or slow
// collaborator can never invalidate the rest.
package loader

import (
	"sync"
	"time"

	"github.com/stridelabs/stride/internal/coach/capabilities"
	"github.com/stridelabs/stride/internal/coach/prompts"
	"github.com/stridelabs/stride/internal/coach/skills"
	"github.com/stridelabs/stride/internal/coach/userctx"
	"github.com/stridelabs/stride/internal/mcp"
)

// ContextBuilder produces a user-state snapshot and its profile.
type ContextBuilder interface {
	Build(profileID string) *userctx.UserContext
	Profile(profileID string) userctx.Profile
}

// SkillMatcher scores skills against a message.
type SkillMatcher interface {
	Match(message, agentID string) *skills.Skill
}

// PromptMatcher ranks prompt templates against a query.
type PromptMatcher interface {
	Match(query string, maxResults int) *prompts.MatchResult
}

// CapabilityResolver resolves combined agent capabilities.
type CapabilityResolver interface {
	Combined(agentIDs []string) capabilities.Capability
}

// ToolSource exposes the MCP registry's tools and server states.
type ToolSource interface {
	Tools() []mcp.Tool
	Status() []mcp.ServerStatus
}

// Service is the parallel loader. All collaborator fields are optional;
// a nil collaborator just settles its branch to the fallback.
type Service struct {
	Builder ContextBuilder
	Skills  SkillMatcher
	Prompts PromptMatcher
	Caps    CapabilityResolver
	MCP     ToolSource

	preloadMu sync.Mutex
	preloaded *Result
	inflight  *preloadFuture

	debounceMu sync.Mutex
	debounced  map[string]*debouncedCall
}

// Attachment is a file attached to the chat turn.
type Attachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ProcessedFile is an attachment after chunking and relevance filtering.
type ProcessedFile struct {
	Name     string   `json:"name"`
	Chunks   []string `json:"chunks"`
	Relevant []string `json:"relevant"`
}

// Options selects what one load should assemble.
type Options struct {
	ProfileID   string
	AgentIDs    []string
	Message     string
	MaxPrompts  int
	Attachments []Attachment
}

// Result is the aggregate of one parallel load. Every field is always
// well-typed; branches that failed hold their fallback value.
type Result struct {
	Context      *userctx.UserContext    `json:"context"`
	Profile      userctx.Profile         `json:"userProfile"`
	Skill        *skills.Skill           `json:"skill,omitempty"`
	Prompts      *prompts.MatchResult    `json:"prompts"`
	Capabilities capabilities.Capability `json:"capabilities"`
	MCPTools     []mcp.Tool              `json:"mcpTools"`
	MCPStatus    []mcp.ServerStatus      `json:"mcpStatus"`
	Files        []ProcessedFile         `json:"files,omitempty"`
	LoadTime     time.Duration           `json:"loadTime"`
}
