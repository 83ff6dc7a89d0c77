package userctx

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stridelabs/stride/internal/markdown"
)

// parseProfile reads profile.md: flat frontmatter plus `**Key:** value`
// metadata lines, with the goal under a `## Goal` section.
func (b *Builder) parseProfile(profileID string) Profile {
	p := Profile{ID: profileID}
	if profileID == "" {
		return p
	}
	data, err := b.store.ReadFile(profileID, "profile.md")
	if err != nil {
		return p
	}
	content := string(data)

	front, body := markdown.SplitFrontmatter(content)
	meta := markdown.MetaPairs(body)
	for k, v := range front {
		if _, ok := meta[k]; !ok {
			meta[k] = v
		}
	}

	p.Meta = meta
	p.Name = lookup(meta, "Name", "name")
	p.Timezone = lookup(meta, "Timezone", "timezone")
	p.Goal = markdown.Section(body, "Goal")
	return p
}

// parseTodos reads todos.md and extracts today's date-scoped section.
// `### Name` subsections group items by challenge; the result is capped
// at 10 items.
func (b *Builder) parseTodos(profileID string, today time.Time) Tasks {
	if profileID == "" {
		return Tasks{Summary: taskSummary(nil)}
	}
	data, err := b.store.ReadFile(profileID, "todos.md")
	if err != nil {
		return Tasks{Summary: taskSummary(nil)}
	}

	date := today.Format("2006-01-02")
	var todos []Todo
	for _, sec := range markdown.DateSections(string(data)) {
		if sec.Date != date {
			continue
		}
		// Items above the first subsection are ungrouped
		head := sec.Body
		if i := strings.Index(sec.Body, "\n### "); i >= 0 {
			head = sec.Body[:i]
		} else if strings.HasPrefix(sec.Body, "### ") {
			head = ""
		}
		for _, box := range markdown.Checkboxes(head) {
			todos = append(todos, Todo{Text: box.Text, Done: box.Done})
		}
		for _, sub := range markdown.Subsections(sec.Body) {
			for _, box := range markdown.Checkboxes(sub.Body) {
				todos = append(todos, Todo{Text: box.Text, Done: box.Done, Section: sub.Name})
			}
		}
	}

	if len(todos) > maxTodos {
		todos = todos[:maxTodos]
	}
	return Tasks{Summary: taskSummary(todos), Todos: todos}
}

// parseChallenges walks challenges/<slug>/challenge.md, computing the
// current day for each active challenge and parsing its day file.
func (b *Builder) parseChallenges(profileID string, today time.Time) Challenges {
	out := Challenges{}
	if profileID == "" {
		return out
	}
	slugs, err := b.store.ListDirs(profileID, "challenges")
	if err != nil {
		return out
	}

	for _, slug := range slugs {
		data, err := b.store.ReadFile(profileID, "challenges/"+slug+"/challenge.md")
		if err != nil {
			continue
		}
		c := parseChallengeMD(slug, string(data), today)
		if c.Status != "active" {
			continue
		}
		out.Data = append(out.Data, c)

		dayFile := fmt.Sprintf("challenges/%s/days/day-%02d.md", slug, c.CurrentDay)
		tasks := ChallengeTasks{Challenge: c.Name, Day: c.CurrentDay}
		if dayData, err := b.store.ReadFile(profileID, dayFile); err == nil {
			content := string(dayData)
			for _, box := range markdown.Checkboxes(content) {
				tasks.Tasks = append(tasks.Tasks, Todo{Text: box.Text, Done: box.Done, Section: c.Name})
			}
			tasks.Focus = markdown.Meta(content, "Focus")
			if tasks.Focus == "" {
				tasks.Focus = markdown.Section(content, "Today's Focus")
			}
		}
		out.TodaysTasks = append(out.TodaysTasks, tasks)
	}

	out.Count = len(out.Data)
	return out
}

// parseChallengeMD reads one challenge.md's metadata lines.
func parseChallengeMD(slug, content string, today time.Time) Challenge {
	meta := markdown.MetaPairs(content)

	c := Challenge{
		Slug:   slug,
		Name:   lookup(meta, "Name", "Challenge"),
		Goal:   markdown.Section(content, "Goal"),
		Status: strings.ToLower(lookup(meta, "Status")),
	}
	if c.Name == "" {
		c.Name = slug
	}
	// No explicit status means the challenge is running
	if c.Status == "" {
		c.Status = "active"
	}

	c.StartDate = lookup(meta, "Start Date", "Start", "Started")
	c.TotalDays = atoiDefault(lookup(meta, "Duration", "Total Days", "Days"), 30)

	var start time.Time
	if c.StartDate != "" {
		start, _ = time.ParseInLocation("2006-01-02", c.StartDate, today.Location())
	}
	c.CurrentDay = ChallengeDay(start, c.TotalDays, today)

	c.Streak = Streak{
		Challenge: c.Name,
		Current:   atoiDefault(lookup(meta, "Streak", "Current Streak"), 0),
		Best:      atoiDefault(lookup(meta, "Best Streak", "Longest Streak"), 0),
	}
	return c
}

// eventLineRe matches schedule list items like `- 07:30 Morning run @ park`.
var eventLineRe = regexp.MustCompile(`^\s*-\s+(?:(\d{1,2}:\d{2})\s+)?(.+?)(?:\s+@\s+(.+))?\s*$`)

// parseSchedule merges the profile's schedule/events.json with the
// shared schedule/events.md, both filtered to today's date.
func (b *Builder) parseSchedule(profileID string, today time.Time) Schedule {
	date := today.Format("2006-01-02")
	var events []Event

	if profileID != "" {
		if data, err := b.store.ReadFile(profileID, "schedule/events.json"); err == nil {
			var raw []struct {
				Title    string `json:"title"`
				Date     string `json:"date"`
				Time     string `json:"time"`
				Location string `json:"location"`
			}
			if err := json.Unmarshal(data, &raw); err == nil {
				for _, e := range raw {
					if e.Date == date && e.Title != "" {
						events = append(events, Event{Title: e.Title, Time: e.Time, Location: e.Location})
					}
				}
			}
		}
	}

	if data, err := b.store.ReadShared("schedule/events.md"); err == nil {
		for _, sec := range markdown.DateSections(string(data)) {
			if sec.Date != date {
				continue
			}
			for _, line := range strings.Split(sec.Body, "\n") {
				m := eventLineRe.FindStringSubmatch(line)
				if m == nil || strings.TrimSpace(m[2]) == "" {
					continue
				}
				events = append(events, Event{Time: m[1], Title: strings.TrimSpace(m[2]), Location: strings.TrimSpace(m[3])})
			}
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Time != events[j].Time {
			// Untimed events sort last
			if events[i].Time == "" {
				return false
			}
			if events[j].Time == "" {
				return true
			}
			return events[i].Time < events[j].Time
		}
		return events[i].Title < events[j].Title
	})
	return Schedule{Today: events}
}

var checkinFileRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\.md$`)

// parseCheckins scans at most the newest 14 check-in files and keeps
// those within the last 7 days, newest first.
func (b *Builder) parseCheckins(profileID string, today time.Time) []Checkin {
	if profileID == "" {
		return nil
	}
	names, err := b.store.ListDir(profileID, "checkins")
	if err != nil {
		return nil
	}
	if len(names) > maxCheckinFiles {
		names = names[len(names)-maxCheckinFiles:]
	}

	cutoff := today.AddDate(0, 0, -checkinDays)
	var checkins []Checkin
	for _, name := range names {
		m := checkinFileRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		date, err := time.ParseInLocation("2006-01-02", m[1], today.Location())
		if err != nil || !date.After(cutoff) || date.After(today) {
			continue
		}
		data, err := b.store.ReadFile(profileID, "checkins/"+name)
		if err != nil {
			continue
		}
		content := string(data)
		checkins = append(checkins, Checkin{
			Date:  m[1],
			Mood:  markdown.Meta(content, "Mood"),
			Notes: firstNonEmpty(markdown.Section(content, "Notes"), markdown.Section(content, "Reflection")),
		})
	}

	sort.Slice(checkins, func(i, j int) bool { return checkins[i].Date > checkins[j].Date })
	return checkins
}

func lookup(meta map[string]string, keys ...string) string {
	for _, key := range keys {
		for k, v := range meta {
			if strings.EqualFold(k, key) && v != "" {
				return v
			}
		}
	}
	return ""
}

func atoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	// Tolerate suffixes like "30 days" or "5 🔥"
	if i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }); i > 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
