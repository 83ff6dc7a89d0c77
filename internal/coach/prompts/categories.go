package prompts

import (
	"regexp"
	"sort"
)

// categoryPatterns maps category names to the phrasing that signals them.
// A query can land in several categories at once; "general" is the
// fallback when nothing matches.
var categoryPatterns = map[string]*regexp.Regexp{
	"planning":       regexp.MustCompile(`(?i)\b(plan|planning|organize|organis|roadmap|outline|prioriti[sz]e)\b`),
	"motivation":     regexp.MustCompile(`(?i)\b(motivat|inspire|inspiration|pump(ed)? up|encourage|drive|willpower)\b`),
	"wellness":       regexp.MustCompile(`(?i)\b(wellness|stress|anxious|anxiety|overwhelm|burnout|self[ -]care|rest)\b`),
	"accountability": regexp.MustCompile(`(?i)\b(accountab|hold me|keep me honest|commit|promise|follow[ -]through)\b`),
	"habits":         regexp.MustCompile(`(?i)\b(habit|routine|consisten|daily practice|every (day|morning|night))\b`),
	"productivity":   regexp.MustCompile(`(?i)\b(productiv|focus|deep work|distract|procrastinat|get (more|things) done)\b`),
	"reflection":     regexp.MustCompile(`(?i)\b(reflect|review|journal|look(ing)? back|retrospect|learned)\b`),
	"goals":          regexp.MustCompile(`(?i)\b(goal|target|milestone|objective|ambition|aim(ing)? (for|to))\b`),
	"scheduling":     regexp.MustCompile(`(?i)\b(schedule|calendar|appointment|time[ -]block|when should)\b`),
	"nutrition":      regexp.MustCompile(`(?i)\b(nutrition|diet|meal|eat(ing)?|food|calorie|protein)\b`),
	"fitness":        regexp.MustCompile(`(?i)\b(workout|exercise|gym|run(ning)?|train(ing)?|fitness|steps)\b`),
	"mindfulness":    regexp.MustCompile(`(?i)\b(meditat|mindful|breath(e|ing)|calm|grounding|present moment)\b`),
	"sleep":          regexp.MustCompile(`(?i)\b(sleep|insomnia|bedtime|wake (up )?early|tired|rest(ed)?)\b`),
	"learning":       regexp.MustCompile(`(?i)\b(learn(ing)?|study|practice|skill up|course|read(ing)? more)\b`),
	"career":         regexp.MustCompile(`(?i)\b(career|job|work project|promotion|interview|professional)\b`),
	"social":         regexp.MustCompile(`(?i)\b(friend|family|relationship|social|lonely|connect(ing)? with)\b`),
	"celebration":    regexp.MustCompile(`(?i)\b(celebrat|proud|finished|completed|achieved|nailed it|milestone hit)\b`),
}

// DetectCategories returns every category whose pattern matches the
// query, sorted for determinism, or ["general"] when none match.
func DetectCategories(query string) []string {
	var matched []string
	for name, re := range categoryPatterns {
		if re.MatchString(query) {
			matched = append(matched, name)
		}
	}
	if len(matched) == 0 {
		return []string{"general"}
	}
	sort.Strings(matched)
	return matched
}

// Context requirement section names.
const (
	RequireProfile    = "profile"
	RequireTasks      = "tasks"
	RequireChallenges = "challenges"
	RequireCheckins   = "checkins"
	RequireHistory    = "history"
	RequireSchedule   = "schedule"
)

var (
	tasksNeedRe      = regexp.MustCompile(`(?i)\b(task|todo|to-do|checklist|chores?)\b`)
	challengesNeedRe = regexp.MustCompile(`(?i)\b(challenge|streak)s?\b`)
	historyNeedRe    = regexp.MustCompile(`(?i)\b(history|progress|check-?ins?|trend|how (have|am) i (been )?doing)\b`)
	scheduleNeedRe   = regexp.MustCompile(`(?i)\b(schedule|today|calendar|event|appointment|agenda)s?\b`)
)

// ContextRequirements declares which context sections a query needs.
// The profile is always required; the rest are keyed off query phrasing.
func ContextRequirements(query string) []string {
	reqs := []string{RequireProfile}
	if tasksNeedRe.MatchString(query) {
		reqs = append(reqs, RequireTasks)
	}
	if challengesNeedRe.MatchString(query) {
		reqs = append(reqs, RequireChallenges)
	}
	if historyNeedRe.MatchString(query) {
		reqs = append(reqs, RequireCheckins, RequireHistory)
	}
	if scheduleNeedRe.MatchString(query) {
		reqs = append(reqs, RequireSchedule)
	}
	return reqs
}

// System prompt router: a small independent classifier that picks one
// of the reasoning-support system prompts by phrasing shape.
var (
	decompositionRe = regexp.MustCompile(`(?i)\b(break (this|it|that)? ?down|step[ -]by[ -]step|smaller (steps|tasks|pieces)|decompose|one thing at a time)\b`)
	stuckRe         = regexp.MustCompile(`(?i)\b(stuck|blocked|obstacle|struggling|hit a wall|can.?t seem to|keep failing)\b`)
)

// longQueryChars is the length past which a query gets the
// query-analysis system prompt even without a question mark.
const longQueryChars = 120

// System prompt ids the router selects among.
const (
	SystemTaskDecomposition = "task-decomposition"
	SystemReasoningChain    = "reasoning-chain"
	SystemQueryAnalysis     = "query-analysis"
)

// RouteSystemPrompt returns the system prompt id for a query, or ""
// when no reasoning support applies.
func RouteSystemPrompt(query string) string {
	switch {
	case decompositionRe.MatchString(query):
		return SystemTaskDecomposition
	case stuckRe.MatchString(query):
		return SystemReasoningChain
	case len(query) > longQueryChars || containsQuestion(query):
		return SystemQueryAnalysis
	}
	return ""
}

func containsQuestion(query string) bool {
	for _, r := range query {
		if r == '?' {
			return true
		}
	}
	return false
}
