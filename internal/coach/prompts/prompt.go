// Package prompts indexes templated coaching prompts and ranks them
// against a user query by keyword, intent, and category scoring. It also
// routes a secondary "system prompt" and declares which context sections
// a query needs.
//
// Prompt files use YAML frontmatter with the markdown body as the
// template:
//
//	---
//	name: weekly-planning
//	description: Structure a weekly plan
//	keywords: [plan, week, schedule]
//	intent: ["plan my week"]
//	category: planning
//	priority: 7
//	---
//
//	Help the user lay out the week ahead...
package prompts

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// SystemCategory marks prompts excluded from normal ranking.
const SystemCategory = "system"

// AgenticSystemType marks prompts excluded from normal ranking by type.
const AgenticSystemType = "agentic-system"

// Prompt is a parameterized template selected by intent/category scoring.
type Prompt struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Keywords    []string `yaml:"keywords" json:"keywords,omitempty"`
	Intent      []string `yaml:"intent" json:"intent,omitempty"`
	Category    string   `yaml:"category" json:"category"`
	Priority    int      `yaml:"priority" json:"priority"` // 0-10
	Type        string   `yaml:"type,omitempty" json:"type,omitempty"`
	Reasoning   string   `yaml:"reasoning,omitempty" json:"reasoning,omitempty"`

	// Template is the markdown body
	Template string `yaml:"-" json:"template,omitempty"`

	// FilePath records where this prompt was loaded from
	FilePath string `yaml:"-" json:"-"`
}

// IsSystem reports whether the prompt is excluded from normal ranking.
func (p *Prompt) IsSystem() bool {
	return p.Category == SystemCategory || p.Type == AgenticSystemType
}

// ParsePromptMD parses a prompt file: YAML frontmatter followed by the
// template body.
func ParsePromptMD(data []byte) (*Prompt, error) {
	if !bytes.HasPrefix(data, []byte("---")) {
		return nil, fmt.Errorf("prompt must start with --- (YAML frontmatter)")
	}
	rest := bytes.TrimPrefix(data, []byte("---"))
	idx := bytes.Index(rest, []byte("\n---"))
	if idx == -1 {
		return nil, fmt.Errorf("prompt missing closing --- for frontmatter")
	}

	var p Prompt
	if err := yaml.Unmarshal(rest[:idx], &p); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	if p.ID == "" {
		p.ID = p.Name
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	if p.Priority < 0 {
		p.Priority = 0
	}
	if p.Priority > 10 {
		p.Priority = 10
	}
	p.Template = string(bytes.TrimSpace(rest[idx+4:]))

	return &p, nil
}
