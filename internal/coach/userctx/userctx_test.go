package userctx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridelabs/stride/internal/store"
)

func writeState(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fixedClock(s string) func() time.Time {
	ts, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts }
}

func TestChallengeDay(t *testing.T) {
	today := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	day := func(start time.Time, total int) int { return ChallengeDay(start, total, today) }

	mar1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 10, day(mar1, 30), "nine full days elapsed plus partial rounds up")
	assert.Equal(t, 1, day(today, 30), "start today")
	assert.Equal(t, 1, day(today.AddDate(0, 0, 5), 30), "future start clamps to 1")
	assert.Equal(t, 30, day(today.AddDate(0, 0, -40), 30), "past end clamps to totalDays")
	assert.Equal(t, 1, day(time.Time{}, 30), "zero start")
	assert.Equal(t, 1, day(mar1, 0), "non-positive duration")
}

func TestBuildEmptyProfile(t *testing.T) {
	b := NewBuilder(store.NewLocal(t.TempDir()))
	b.SetClock(fixedClock("2026-03-10 08:00"))

	uc := b.Build("")
	assert.Equal(t, "2026-03-10", uc.CurrentDate)
	assert.Equal(t, "No tasks for today", uc.Tasks.Summary)
	assert.NotNil(t, uc.Tasks.Todos)
	assert.NotNil(t, uc.Challenges.Data)
	assert.NotNil(t, uc.Challenges.TodaysTasks)
	assert.NotNil(t, uc.Progress.Streaks)
	assert.NotNil(t, uc.Schedule.Today)
	assert.NotNil(t, uc.RecentCheckins)
}

func TestBuildFullProfile(t *testing.T) {
	root := t.TempDir()
	writeState(t, root, "profiles/jess/profile.md", `---
name: Jess
timezone: America/Denver
---
**Name:** Jess

## Goal
Run a half marathon by June.
`)
	writeState(t, root, "profiles/jess/todos.md", `# Todos

## Tuesday (2026-03-10)
- [x] Morning stretch
- [ ] Meal prep

### Couch to 21k
- [ ] 5k easy run

## Monday (2026-03-09)
- [x] Old item
`)
	writeState(t, root, "profiles/jess/challenges/run-streak/challenge.md", `# Couch to 21k

**Name:** Couch to 21k
**Status:** Active
**Start Date:** 2026-03-01
**Duration:** 30 days
**Streak:** 9
**Best Streak:** 9

## Goal
Run every day.
`)
	writeState(t, root, "profiles/jess/challenges/run-streak/days/day-10.md", `# Day 10

**Focus:** Recovery pace

- [ ] 5k easy run
- [ ] Foam roll
`)
	writeState(t, root, "profiles/jess/challenges/old-one/challenge.md", `**Name:** Done Deal
**Status:** completed
`)
	writeState(t, root, "profiles/jess/schedule/events.json", `[
  {"title": "Standup", "date": "2026-03-10", "time": "09:30"},
  {"title": "Tomorrow thing", "date": "2026-03-11", "time": "10:00"}
]`)
	writeState(t, root, "schedule/events.md", `## Tuesday (2026-03-10)
- 07:30 Morning run @ park
- Stretch goal review
`)
	writeState(t, root, "profiles/jess/checkins/2026-03-09.md", `**Mood:** good

## Notes
Felt strong on the run.
`)
	writeState(t, root, "profiles/jess/checkins/2026-02-20.md", "**Mood:** meh\n")

	b := NewBuilder(store.NewLocal(root))
	b.SetClock(fixedClock("2026-03-10 08:00"))
	uc := b.Build("jess")

	assert.Equal(t, "Jess", uc.Profile.Name)
	assert.Equal(t, "America/Denver", uc.Profile.Timezone)
	assert.Contains(t, uc.Profile.Goal, "half marathon")

	require.Len(t, uc.Tasks.Todos, 3)
	assert.Equal(t, "1 of 3 tasks done today", uc.Tasks.Summary)
	assert.Equal(t, "Morning stretch", uc.Tasks.Todos[0].Text)
	assert.True(t, uc.Tasks.Todos[0].Done)
	assert.Equal(t, "Couch to 21k", uc.Tasks.Todos[2].Section)

	require.Len(t, uc.Challenges.Data, 1, "completed challenge excluded")
	c := uc.Challenges.Data[0]
	assert.Equal(t, "Couch to 21k", c.Name)
	assert.Equal(t, 10, c.CurrentDay)
	assert.Equal(t, 30, c.TotalDays)
	assert.Equal(t, 9, c.Streak.Current)

	require.Len(t, uc.Challenges.TodaysTasks, 1)
	ct := uc.Challenges.TodaysTasks[0]
	assert.Equal(t, 10, ct.Day)
	assert.Equal(t, "Recovery pace", ct.Focus)
	assert.Len(t, ct.Tasks, 2)

	require.Len(t, uc.Progress.Streaks, 1)
	assert.Equal(t, 9, uc.Progress.Streaks[0].Current)

	require.Len(t, uc.Schedule.Today, 3, "tomorrow's event excluded")
	assert.Equal(t, "Morning run", uc.Schedule.Today[0].Title)
	assert.Equal(t, "park", uc.Schedule.Today[0].Location)
	assert.Equal(t, "Standup", uc.Schedule.Today[1].Title)
	assert.Equal(t, "Stretch goal review", uc.Schedule.Today[2].Title, "untimed events sort last")

	require.Len(t, uc.RecentCheckins, 1, "check-ins older than a week excluded")
	assert.Equal(t, "2026-03-09", uc.RecentCheckins[0].Date)
	assert.Equal(t, "good", uc.RecentCheckins[0].Mood)
	assert.Contains(t, uc.RecentCheckins[0].Notes, "Felt strong")
}

func TestTodosCapped(t *testing.T) {
	root := t.TempDir()
	var sb strings.Builder
	sb.WriteString("## Tuesday (2026-03-10)\n")
	for i := 0; i < 15; i++ {
		sb.WriteString("- [ ] item\n")
	}
	writeState(t, root, "profiles/p/todos.md", sb.String())

	b := NewBuilder(store.NewLocal(root))
	b.SetClock(fixedClock("2026-03-10 08:00"))
	uc := b.Build("p")
	assert.Len(t, uc.Tasks.Todos, maxTodos)
}

func TestChallengeMetaFallbacks(t *testing.T) {
	today := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	c := parseChallengeMD("hydrate", `**Challenge:** Hydrate
**Started:** 2026-03-08
**Days:** 14
**Current Streak:** 2 🔥
`, today)
	assert.Equal(t, "Hydrate", c.Name)
	assert.Equal(t, "active", c.Status, "missing status defaults to active")
	assert.Equal(t, 14, c.TotalDays)
	assert.Equal(t, 3, c.CurrentDay)
	assert.Equal(t, 2, c.Streak.Current)

	c = parseChallengeMD("mystery", "just prose, no metadata\n", today)
	assert.Equal(t, "mystery", c.Name, "name falls back to slug")
	assert.Equal(t, 30, c.TotalDays)
	assert.Equal(t, 1, c.CurrentDay)
}

func TestBuildSystemPromptDeterministic(t *testing.T) {
	root := t.TempDir()
	writeState(t, root, "profiles/p/profile.md", "**Name:** Pat\n\n## Goal\nShip the thing.\n")
	writeState(t, root, "profiles/p/todos.md", `## Tuesday (2026-03-10)
- [ ] one
- [x] two
- [ ] three
- [ ] four
- [ ] five
- [ ] six
- [ ] seven
`)

	b := NewBuilder(store.NewLocal(root))
	b.SetClock(fixedClock("2026-03-10 08:00"))
	uc := b.Build("p")

	first := BuildSystemPrompt(uc, "unified", nil)
	second := BuildSystemPrompt(b.Build("p"), "unified", nil)
	assert.Equal(t, first, second, "identical inputs must render identically")

	assert.Contains(t, first, "Today is 2026-03-10.")
	assert.Contains(t, first, "- User: Pat")
	assert.Contains(t, first, "1 of 7 tasks done today")
	assert.Contains(t, first, "…and 2 more", "only five todos shown")
	assert.NotContains(t, first, "- [ ] six")
	assert.Contains(t, first, "## Coaching Guidelines")
	assert.Contains(t, first, "/streak-status")

	// Sections render in fixed order
	date := strings.Index(first, "Today is")
	summary := strings.Index(first, "## Summary")
	tasks := strings.Index(first, "## Today's Tasks")
	guidelines := strings.Index(first, "## Coaching Guidelines")
	commands := strings.Index(first, "## Commands")
	assert.True(t, date < summary && summary < tasks && tasks < guidelines && guidelines < commands)
}
