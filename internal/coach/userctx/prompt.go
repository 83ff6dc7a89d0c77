package userctx

import (
	"fmt"
	"strings"

	"github.com/stridelabs/stride/internal/coach/skills"
)

// coachingGuidelines is the static behavior block appended to every
// system prompt.
const coachingGuidelines = `## Coaching Guidelines
- Be warm but direct; celebrate wins before pointing at gaps.
- Anchor advice in the user's actual data above, not generic tips.
- Keep answers short; one concrete next step beats a lecture.
- If a streak broke, focus on restarting today, not on the miss.
- Never invent tasks, events, or progress that are not in the context.`

// commandReference is the static slash-command list appended to every
// system prompt.
const commandReference = `## Commands
The user can type these at any time:
- /checkin — record today's check-in
- /streak-new — start a new challenge
- /streak-status — review challenge progress
- /plan — plan today or this week
- /review — reflect on the past week`

// BuildSystemPrompt renders the snapshot into the system prompt.
//
// The section order is fixed: current date, summary stats, today's
// todos (at most 5 shown), per-challenge day tasks, active challenge
// summaries, today's schedule, matched skill instructions, the static
// coaching guidelines, and the static command reference. Identical
// inputs must produce byte-identical output; callers cache on it.
func BuildSystemPrompt(uc *UserContext, agentID string, matched *skills.Skill) string {
	var sb strings.Builder

	sb.WriteString("You are the user's accountability coach")
	if agentID != "" && agentID != "unified" {
		fmt.Fprintf(&sb, " (%s)", agentID)
	}
	sb.WriteString(".\n\n")

	fmt.Fprintf(&sb, "Today is %s.\n\n", uc.CurrentDate)

	// Summary stats
	sb.WriteString("## Summary\n")
	if uc.Profile.Name != "" {
		fmt.Fprintf(&sb, "- User: %s\n", uc.Profile.Name)
	}
	if uc.Profile.Goal != "" {
		fmt.Fprintf(&sb, "- Goal: %s\n", uc.Profile.Goal)
	}
	fmt.Fprintf(&sb, "- Tasks: %s\n", uc.Tasks.Summary)
	fmt.Fprintf(&sb, "- Active challenges: %d\n", uc.Challenges.Count)
	if len(uc.Progress.Streaks) > 0 {
		top := uc.Progress.Streaks[0]
		fmt.Fprintf(&sb, "- Longest current streak: %d days (%s)\n", top.Current, top.Challenge)
	}
	sb.WriteString("\n")

	// Today's todos, capped for prompt size
	if len(uc.Tasks.Todos) > 0 {
		sb.WriteString("## Today's Tasks\n")
		shown := uc.Tasks.Todos
		if len(shown) > promptTodos {
			shown = shown[:promptTodos]
		}
		for _, t := range shown {
			sb.WriteString("- ")
			sb.WriteString(checkbox(t.Done))
			sb.WriteString(" ")
			sb.WriteString(t.Text)
			if t.Section != "" {
				fmt.Fprintf(&sb, " (%s)", t.Section)
			}
			sb.WriteString("\n")
		}
		if extra := len(uc.Tasks.Todos) - len(shown); extra > 0 {
			fmt.Fprintf(&sb, "- …and %d more\n", extra)
		}
		sb.WriteString("\n")
	}

	// Per-challenge day tasks
	for _, ct := range uc.Challenges.TodaysTasks {
		fmt.Fprintf(&sb, "## %s — Day %d\n", ct.Challenge, ct.Day)
		if ct.Focus != "" {
			fmt.Fprintf(&sb, "Focus: %s\n", ct.Focus)
		}
		for _, t := range ct.Tasks {
			fmt.Fprintf(&sb, "- %s %s\n", checkbox(t.Done), t.Text)
		}
		sb.WriteString("\n")
	}

	// Active challenge summaries
	if len(uc.Challenges.Data) > 0 {
		sb.WriteString("## Challenges\n")
		for _, c := range uc.Challenges.Data {
			fmt.Fprintf(&sb, "- %s: day %d of %d", c.Name, c.CurrentDay, c.TotalDays)
			if c.Streak.Current > 0 {
				fmt.Fprintf(&sb, ", %d-day streak", c.Streak.Current)
			}
			if c.Goal != "" {
				fmt.Fprintf(&sb, " — %s", c.Goal)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	// Today's schedule
	if len(uc.Schedule.Today) > 0 {
		sb.WriteString("## Today's Schedule\n")
		for _, e := range uc.Schedule.Today {
			sb.WriteString("- ")
			if e.Time != "" {
				sb.WriteString(e.Time)
				sb.WriteString(" ")
			}
			sb.WriteString(e.Title)
			if e.Location != "" {
				fmt.Fprintf(&sb, " @ %s", e.Location)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	// Matched skill instructions
	if matched != nil && matched.Body != "" {
		fmt.Fprintf(&sb, "## Active Skill: %s\n", matched.Name)
		sb.WriteString(matched.Body)
		sb.WriteString("\n\n")
	}

	sb.WriteString(coachingGuidelines)
	sb.WriteString("\n\n")
	sb.WriteString(commandReference)
	sb.WriteString("\n")

	return sb.String()
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}
