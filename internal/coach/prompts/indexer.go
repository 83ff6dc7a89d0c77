package prompts

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/stridelabs/stride/internal/logging"
)

const indexCacheKey = "index"

// Scoring weights (see Match).
const (
	kwExactToken  = 3.0
	kwPrefix      = 1.5
	kwSubstring   = 0.5
	kwGroupWeight = 3.0

	intentSubstring   = 5.0
	intentOverlapEach = 2.0
	intentGroupWeight = 4.0

	categoryBonus     = 5.0
	priorityWeight    = 2.0 // priority/10 times this
	nameOverlapWeight = 4.0
	descOverlapWeight = 2.0
)

// MatchResult is the outcome of ranking prompts against a query.
type MatchResult struct {
	Primary             *Prompt   `json:"primary,omitempty"`
	Secondary           []*Prompt `json:"secondary,omitempty"`
	SystemPrompt        *Prompt   `json:"systemPrompt,omitempty"`
	Categories          []string  `json:"categories"`
	ContextRequirements []string  `json:"contextRequirements"`
}

// index is one cached load of the prompt directory.
type index struct {
	ranked []*Prompt          // prompts eligible for ranking, sorted by id
	system map[string]*Prompt // system prompts by id
}

// Indexer loads prompt templates from a directory and ranks them.
// The loaded index is cached with a TTL (120s by default) in an
// instance-owned cache, never package state.
type Indexer struct {
	dir       string
	cache     *gocache.Cache
	fileReads atomic.Int64
}

// NewIndexer creates an indexer over a prompt directory.
func NewIndexer(dir string, ttl time.Duration) *Indexer {
	return &Indexer{
		dir:   dir,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Invalidate drops the cached index so the next query reloads from disk.
func (ix *Indexer) Invalidate() {
	ix.cache.Delete(indexCacheKey)
}

// IsExpired reports whether the next access will reload from disk.
func (ix *Indexer) IsExpired() bool {
	_, ok := ix.cache.Get(indexCacheKey)
	return !ok
}

// FileReads returns the cumulative number of prompt file reads.
// Used by tests to verify cache hits.
func (ix *Indexer) FileReads() int64 {
	return ix.fileReads.Load()
}

// load returns the cached index, reloading the directory on expiry.
// A missing directory yields an empty index, never an error.
func (ix *Indexer) load() *index {
	if cached, ok := ix.cache.Get(indexCacheKey); ok {
		return cached.(*index)
	}

	idx := &index{system: make(map[string]*Prompt)}

	entries, err := os.ReadDir(ix.dir)
	if err != nil {
		ix.cache.Set(indexCacheKey, idx, gocache.DefaultExpiration)
		return idx
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".md") {
			continue
		}
		path := filepath.Join(ix.dir, e.Name())
		data, err := os.ReadFile(path)
		ix.fileReads.Add(1)
		if err != nil {
			logging.Warnf("[prompts] Failed to read %s: %v", path, err)
			continue
		}
		p, err := ParsePromptMD(data)
		if err != nil {
			logging.Warnf("[prompts] Failed to parse %s: %v", path, err)
			continue
		}
		if p.ID == "" {
			p.ID = strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			p.Name = p.ID
		}
		p.FilePath = path

		if p.IsSystem() {
			idx.system[p.ID] = p
		} else {
			idx.ranked = append(idx.ranked, p)
		}
	}

	sort.Slice(idx.ranked, func(i, j int) bool { return idx.ranked[i].ID < idx.ranked[j].ID })

	logging.Debugf("[prompts] Indexed %d prompts (%d system)", len(idx.ranked), len(idx.system))
	ix.cache.Set(indexCacheKey, idx, gocache.DefaultExpiration)
	return idx
}

// List returns every rankable prompt sorted by id.
func (ix *Indexer) List() []*Prompt {
	return ix.load().ranked
}

// Match scores all rankable prompts against a query and returns the
// best as Primary and the next maxResults-1 as Secondary. System
// prompts never appear in the ranking; one may be selected
// independently by the phrasing router. Ties break lexicographically
// by prompt id.
func (ix *Indexer) Match(query string, maxResults int) *MatchResult {
	if maxResults < 1 {
		maxResults = 1
	}

	idx := ix.load()
	categories := DetectCategories(query)
	catSet := make(map[string]bool, len(categories))
	for _, c := range categories {
		catSet[c] = true
	}

	lower := strings.ToLower(query)
	tokens := tokenize(lower)

	type scored struct {
		prompt *Prompt
		score  float64
	}
	results := make([]scored, 0, len(idx.ranked))
	for _, p := range idx.ranked {
		if s := scorePrompt(p, lower, tokens, catSet); s > 0 {
			results = append(results, scored{p, s})
		}
	}

	// idx.ranked is id-sorted and the sort is stable, so equal scores
	// keep lexicographic order.
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	out := &MatchResult{
		Categories:          categories,
		ContextRequirements: ContextRequirements(query),
	}
	if len(results) > 0 {
		out.Primary = results[0].prompt
	}
	for i := 1; i < len(results) && i < maxResults; i++ {
		out.Secondary = append(out.Secondary, results[i].prompt)
	}
	if id := RouteSystemPrompt(query); id != "" {
		out.SystemPrompt = idx.system[id]
	}
	return out
}

// scorePrompt computes the weighted relevance of one prompt:
// keyword overlap ×3, intent overlap ×4, +5 for a detected category,
// priority/10 ×2, plus name (×4) and description (×2) word overlap.
func scorePrompt(p *Prompt, query string, tokens map[string]bool, categories map[string]bool) float64 {
	var score float64

	var kw float64
	for _, k := range p.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		switch {
		case tokens[k]:
			kw += kwExactToken
		case hasPrefixToken(tokens, k):
			kw += kwPrefix
		case strings.Contains(query, k):
			kw += kwSubstring
		}
	}
	score += kw * kwGroupWeight

	var intent float64
	for _, phrase := range p.Intent {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		if strings.Contains(query, phrase) {
			intent += intentSubstring
		} else {
			intent += float64(wordOverlap(phrase, tokens)) * intentOverlapEach
		}
	}
	score += intent * intentGroupWeight

	if categories[p.Category] {
		score += categoryBonus
	}
	score += float64(p.Priority) / 10 * priorityWeight
	score += float64(wordOverlap(strings.ToLower(p.Name), tokens)) * nameOverlapWeight
	score += float64(wordOverlap(strings.ToLower(p.Description), tokens)) * descOverlapWeight

	return score
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, t := range strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '\'')
	}) {
		tokens[t] = true
	}
	return tokens
}

// hasPrefixToken reports whether any query token and the keyword share
// a prefix relationship (e.g. "plan" matches "planning").
func hasPrefixToken(tokens map[string]bool, keyword string) bool {
	for t := range tokens {
		if len(t) >= 3 && len(keyword) >= 3 && (strings.HasPrefix(t, keyword) || strings.HasPrefix(keyword, t)) {
			return true
		}
	}
	return false
}

// wordOverlap counts how many words of text appear as query tokens.
func wordOverlap(text string, tokens map[string]bool) int {
	n := 0
	for t := range tokenize(text) {
		if tokens[t] {
			n++
		}
	}
	return n
}
