// Package skills provides Markdown-based skill and slash-command
// definitions and matches them against user messages. Skills extend the
// coach's behavior for a task type and are auto-triggered by phrase
// matching; commands are invoked explicitly with a leading slash.
//
// Definitions use YAML frontmatter with the markdown body as the
// instruction text:
//
//	---
//	name: streak-rescue
//	description: Helps recover a broken streak
//	triggers:
//	  - broke my streak
//	  - missed a day
//	---
//
//	When the user has broken a streak...
package skills

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Skill types.
const (
	TypeSkill   = "skill"   // auto-triggered by matching
	TypeCommand = "command" // explicit /slash invocation
)

// Skill represents a skill or command parsed from a definition file.
type Skill struct {
	// ID is the unique identifier (defaults to the frontmatter name)
	ID string `yaml:"id" json:"id"`

	// Name is the human-readable name
	Name string `yaml:"name" json:"name"`

	// Description explains what the skill does
	Description string `yaml:"description" json:"description"`

	// Triggers are phrases that auto-activate this skill when matched
	// in user messages. Order is preserved from the definition file.
	Triggers []string `yaml:"triggers" json:"triggers,omitempty"`

	// Agents lists coach agent ids this skill is assigned to.
	// Empty means available to every agent.
	Agents []string `yaml:"agents" json:"agents,omitempty"`

	// Type is TypeSkill or TypeCommand (set by the loader, not frontmatter)
	Type string `yaml:"-" json:"type"`

	// Body is the markdown instruction text
	Body string `yaml:"-" json:"body,omitempty"`

	// FilePath records where this skill was loaded from
	FilePath string `yaml:"-" json:"-"`
}

// Validate checks that the definition is usable.
func (s *Skill) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("skill id is required")
	}
	if s.Description == "" {
		return fmt.Errorf("skill %q: description is required", s.ID)
	}
	return nil
}

// AssignedTo reports whether the skill is available to the given agent.
// The special agent id "unified" sees every skill.
func (s *Skill) AssignedTo(agentID string) bool {
	if agentID == "unified" || len(s.Agents) == 0 {
		return true
	}
	for _, a := range s.Agents {
		if a == agentID {
			return true
		}
	}
	return false
}

// ParseSkillMD parses a definition file: YAML frontmatter between ---
// markers followed by the markdown body.
func ParseSkillMD(data []byte) (*Skill, error) {
	frontmatter, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	var skill Skill
	if err := yaml.Unmarshal(frontmatter, &skill); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	if skill.ID == "" {
		skill.ID = skill.Name
	}
	if skill.Name == "" {
		skill.Name = skill.ID
	}
	skill.Body = string(bytes.TrimSpace(body))

	return &skill, nil
}

// splitFrontmatter separates YAML frontmatter from the markdown body.
func splitFrontmatter(data []byte) (frontmatter, body []byte, err error) {
	if !bytes.HasPrefix(data, []byte("---")) {
		return nil, nil, fmt.Errorf("definition must start with --- (YAML frontmatter)")
	}

	rest := data[3:]
	rest = bytes.TrimLeft(rest, " \t")
	if len(rest) > 0 && rest[0] == '\n' {
		rest = rest[1:]
	} else if len(rest) > 1 && rest[0] == '\r' && rest[1] == '\n' {
		rest = rest[2:]
	}

	closingIdx := bytes.Index(rest, []byte("\n---"))
	if closingIdx == -1 {
		closingIdx = bytes.Index(rest, []byte("\r\n---"))
		if closingIdx == -1 {
			return nil, nil, fmt.Errorf("definition missing closing --- for frontmatter")
		}
	}

	frontmatter = rest[:closingIdx]
	body = rest[closingIdx+4:]
	body = bytes.TrimLeft(body, " \t")
	if len(body) > 0 && body[0] == '\n' {
		body = body[1:]
	} else if len(body) > 1 && body[0] == '\r' && body[1] == '\n' {
		body = body[2:]
	}

	return frontmatter, body, nil
}
