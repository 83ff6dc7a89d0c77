package userctx

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/stridelabs/stride/internal/store"
)

// Builder assembles UserContext snapshots from a read-only store.
type Builder struct {
	store store.Store
	now   func() time.Time
}

// NewBuilder creates a context builder over the given store.
func NewBuilder(st store.Store) *Builder {
	return &Builder{store: st, now: time.Now}
}

// SetClock overrides the wall clock. Tests only.
func (b *Builder) SetClock(now func() time.Time) {
	b.now = now
}

// Profile parses just the profile.md metadata, without the rest of the
// snapshot. The parallel loader runs this as its own branch.
func (b *Builder) Profile(profileID string) Profile {
	return b.parseProfile(profileID)
}

// Build parses the profile's state files into a fresh snapshot.
// It never returns an error: every section degrades independently to
// its zero value, and an unknown or empty profileID yields a well-formed
// empty context.
func (b *Builder) Build(profileID string) *UserContext {
	today := b.now()
	uc := &UserContext{
		CurrentDate: today.Format("2006-01-02"),
	}
	uc.Profile = b.parseProfile(profileID)
	uc.Tasks = b.parseTodos(profileID, today)
	uc.Challenges = b.parseChallenges(profileID, today)
	uc.Progress = streakRollup(uc.Challenges.Data)
	uc.Schedule = b.parseSchedule(profileID, today)
	uc.RecentCheckins = b.parseCheckins(profileID, today)

	// Keep JSON shape stable: empty slices, not nulls
	if uc.Tasks.Todos == nil {
		uc.Tasks.Todos = []Todo{}
	}
	if uc.Challenges.Data == nil {
		uc.Challenges.Data = []Challenge{}
	}
	if uc.Challenges.TodaysTasks == nil {
		uc.Challenges.TodaysTasks = []ChallengeTasks{}
	}
	if uc.Progress.Streaks == nil {
		uc.Progress.Streaks = []Streak{}
	}
	if uc.Schedule.Today == nil {
		uc.Schedule.Today = []Event{}
	}
	if uc.RecentCheckins == nil {
		uc.RecentCheckins = []Checkin{}
	}
	return uc
}

// ChallengeDay computes which day of a challenge today falls on:
// the ceiling of the elapsed time since the start date in days, clamped
// to [1, totalDays]. A zero start date yields day 1.
func ChallengeDay(start time.Time, totalDays int, today time.Time) int {
	if start.IsZero() || totalDays < 1 {
		return 1
	}
	day := int(math.Ceil(today.Sub(start).Hours() / 24))
	if day < 1 {
		return 1
	}
	if day > totalDays {
		return totalDays
	}
	return day
}

// streakRollup keeps challenges with a positive current streak, sorted
// by current streak descending (name ascending on ties).
func streakRollup(challenges []Challenge) Progress {
	var streaks []Streak
	for _, c := range challenges {
		if c.Streak.Current > 0 {
			streaks = append(streaks, c.Streak)
		}
	}
	sort.Slice(streaks, func(i, j int) bool {
		if streaks[i].Current != streaks[j].Current {
			return streaks[i].Current > streaks[j].Current
		}
		return streaks[i].Challenge < streaks[j].Challenge
	})
	return Progress{Streaks: streaks}
}

func taskSummary(todos []Todo) string {
	if len(todos) == 0 {
		return "No tasks for today"
	}
	done := 0
	for _, t := range todos {
		if t.Done {
			done++
		}
	}
	return fmt.Sprintf("%d of %d tasks done today", done, len(todos))
}
