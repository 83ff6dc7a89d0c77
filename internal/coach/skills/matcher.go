package skills

import (
	"regexp"
	"strings"
)

// minMatchScore is the minimum score required to accept a skill match.
const minMatchScore = 2

// Scoring weights.
const (
	scoreIDToken       = 5 // skill id or name is an exact token of the message
	scorePhraseTrigger = 4 // multi-word trigger is a substring of the message
	scoreWordTrigger   = 3 // single-word trigger is an exact token of the message
)

var tokenRe = regexp.MustCompile(`[a-z0-9][a-z0-9'-]*`)

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, t := range tokenRe.FindAllString(strings.ToLower(s), -1) {
		tokens[t] = true
	}
	return tokens
}

// Match finds the best skill for a message, or nil when nothing scores
// at least the minimum threshold.
//
// A message starting with "/" is a command invocation: the first token
// (minus the slash) is looked up directly in the command set, bypassing
// all scoring. Otherwise the candidates are the skills assigned to
// agentID ("unified" sees all), scored by id/name and trigger matches.
// Score ties break lexicographically by skill id so matching stays
// deterministic regardless of map iteration order.
func (l *Loader) Match(message, agentID string) *Skill {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return nil
	}

	if strings.HasPrefix(msg, "/") {
		name := strings.TrimPrefix(strings.Fields(msg)[0], "/")
		if cmd, ok := l.Command(strings.ToLower(name)); ok {
			return cmd
		}
		// Unknown command: fall through to trigger scoring
	}

	lower := strings.ToLower(msg)
	tokens := tokenize(lower)

	var best *Skill
	bestScore := 0

	// List() is sorted by id, so the first candidate wins ties.
	for _, skill := range l.List() {
		if !skill.AssignedTo(agentID) {
			continue
		}

		score := 0
		if tokens[strings.ToLower(skill.ID)] || tokens[strings.ToLower(skill.Name)] {
			score += scoreIDToken
		}
		for _, trigger := range skill.Triggers {
			t := strings.ToLower(strings.TrimSpace(trigger))
			if t == "" {
				continue
			}
			if strings.Contains(t, " ") {
				if strings.Contains(lower, t) {
					score += scorePhraseTrigger
				}
			} else if tokens[t] {
				score += scoreWordTrigger
			}
		}

		if score > bestScore {
			best = skill
			bestScore = score
		}
	}

	if bestScore < minMatchScore {
		return nil
	}
	return best
}
