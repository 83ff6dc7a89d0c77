// Package userctx builds the structured snapshot of a user's current
// state (profile, todos, challenges, schedule, recent check-ins) from
// their on-disk files, and renders it into the deterministic system
// prompt consumed by the chat endpoint.
//
// The snapshot is rebuilt fresh per request and never persisted. Every
// parse path is failure-isolated: missing or malformed files degrade to
// the type's zero value and never surface an error.
package userctx

// Profile is the user's coaching profile.
type Profile struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Timezone string            `json:"timezone,omitempty"`
	Goal     string            `json:"goal,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// Todo is a single checklist item.
type Todo struct {
	Text    string `json:"text"`
	Done    bool   `json:"done"`
	Section string `json:"section,omitempty"` // grouping heading, if any
}

// Tasks summarizes today's todo list. Todos is capped at 10 items to
// bound prompt size.
type Tasks struct {
	Summary string `json:"summary"`
	Todos   []Todo `json:"todos"`
}

// Streak is a challenge's streak counter.
type Streak struct {
	Challenge string `json:"challenge"`
	Current   int    `json:"current"`
	Best      int    `json:"best,omitempty"`
}

// Challenge is a user-defined multi-day accountability goal.
type Challenge struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	Goal       string `json:"goal,omitempty"`
	Status     string `json:"status"` // "active" unless stated otherwise
	StartDate  string `json:"startDate,omitempty"`
	TotalDays  int    `json:"totalDays"`
	CurrentDay int    `json:"currentDay"`
	Streak     Streak `json:"streak"`
}

// ChallengeTasks is the task checklist for one challenge's current day.
type ChallengeTasks struct {
	Challenge string `json:"challenge"`
	Day       int    `json:"day"`
	Focus     string `json:"focus,omitempty"`
	Tasks     []Todo `json:"tasks"`
}

// Challenges groups all challenge-derived context.
type Challenges struct {
	Data        []Challenge      `json:"data"`
	Count       int              `json:"count"`
	TodaysTasks []ChallengeTasks `json:"todaysTasks"`
}

// Progress holds streak rollups: only challenges with a positive
// current streak, sorted descending.
type Progress struct {
	Streaks []Streak `json:"streaks"`
}

// Event is a scheduled item for today.
type Event struct {
	Title    string `json:"title"`
	Time     string `json:"time,omitempty"` // HH:MM
	Location string `json:"location,omitempty"`
}

// Schedule holds today's merged schedule.
type Schedule struct {
	Today []Event `json:"today"`
}

// Checkin is one daily check-in entry.
type Checkin struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Mood  string `json:"mood,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// UserContext is the assembled snapshot injected into the system prompt.
type UserContext struct {
	Profile        Profile    `json:"profile"`
	Tasks          Tasks      `json:"tasks"`
	Challenges     Challenges `json:"challenges"`
	Progress       Progress   `json:"progress"`
	Schedule       Schedule   `json:"schedule"`
	RecentCheckins []Checkin  `json:"recentCheckins"`
	CurrentDate    string     `json:"currentDate"` // YYYY-MM-DD at build time
}

// Caps bounding prompt size.
const (
	maxTodos        = 10 // todos kept in the snapshot
	maxCheckinFiles = 14 // newest check-in files scanned
	checkinDays     = 7  // check-ins kept within this many days
	promptTodos     = 5  // todos shown in the rendered prompt
)
