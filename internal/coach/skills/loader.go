package skills

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stridelabs/stride/internal/logging"
)

// SkillFileName is the expected filename for folder-based skill definitions.
const SkillFileName = "SKILL.md"

// Loader loads and caches skill and command definitions.
//
// Skills are folder-based (skills/<name>/SKILL.md); commands are
// file-based (commands/<name>.md). The cache expires after the
// configured TTL and can also be invalidated explicitly or by the
// filesystem watcher. Missing directories are not an error; they
// simply yield an empty set.
type Loader struct {
	mu        sync.RWMutex
	skills    map[string]*Skill // id -> skill
	commands  map[string]*Skill // id -> command
	skillsDir string
	cmdDir    string
	ttl       time.Duration
	loadedAt  time.Time
	watcher   *fsnotify.Watcher
	cancelCtx context.CancelFunc
	fileReads atomic.Int64
}

// NewLoader creates a loader over the given skill and command directories.
func NewLoader(skillsDir, cmdDir string, ttl time.Duration) *Loader {
	return &Loader{
		skills:    make(map[string]*Skill),
		commands:  make(map[string]*Skill),
		skillsDir: skillsDir,
		cmdDir:    cmdDir,
		ttl:       ttl,
	}
}

// refresh reloads both directories if the cache has expired.
func (l *Loader) refresh() {
	l.mu.RLock()
	fresh := !l.loadedAt.IsZero() && time.Since(l.loadedAt) < l.ttl
	l.mu.RUnlock()
	if fresh {
		return
	}
	l.Reload()
}

// Reload unconditionally reloads all definitions.
func (l *Loader) Reload() {
	skills := l.loadDir(l.skillsDir, TypeSkill)
	commands := l.loadDir(l.cmdDir, TypeCommand)

	l.mu.Lock()
	l.skills = skills
	l.commands = commands
	l.loadedAt = time.Now()
	l.mu.Unlock()

	logging.Debugf("[skills] Loaded %d skills, %d commands", len(skills), len(commands))
}

// loadDir walks a definitions directory. Folder-based layouts contribute
// SKILL.md files; file-based layouts contribute every .md file. Malformed
// definitions are skipped, never fatal.
func (l *Loader) loadDir(dir, typ string) map[string]*Skill {
	out := make(map[string]*Skill)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return out
	}

	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if typ == TypeSkill && !strings.EqualFold(base, SkillFileName) {
			return nil
		}
		if typ == TypeCommand && !strings.HasSuffix(strings.ToLower(base), ".md") {
			return nil
		}

		data, err := os.ReadFile(path)
		l.fileReads.Add(1)
		if err != nil {
			logging.Warnf("[skills] Failed to read %s: %v", path, err)
			return nil
		}

		skill, err := ParseSkillMD(data)
		if err != nil {
			logging.Warnf("[skills] Failed to parse %s: %v", path, err)
			return nil
		}

		if skill.ID == "" {
			// Fall back to the folder name (skills) or file name (commands)
			if typ == TypeSkill {
				skill.ID = filepath.Base(filepath.Dir(path))
			} else {
				skill.ID = strings.TrimSuffix(base, filepath.Ext(base))
			}
			skill.Name = skill.ID
		}
		skill.Type = typ
		skill.FilePath = path

		if err := skill.Validate(); err != nil {
			logging.Warnf("[skills] Invalid definition %s: %v", path, err)
			return nil
		}

		out[skill.ID] = skill
		return nil
	})

	return out
}

// Invalidate clears the cache so the next access reloads from disk.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.loadedAt = time.Time{}
	l.mu.Unlock()
}

// IsExpired reports whether the cache has passed its TTL.
func (l *Loader) IsExpired() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt.IsZero() || time.Since(l.loadedAt) >= l.ttl
}

// FileReads returns the cumulative number of definition file reads.
// Used by tests to verify cache hits.
func (l *Loader) FileReads() int64 {
	return l.fileReads.Load()
}

// Get returns a skill by id.
func (l *Loader) Get(id string) (*Skill, bool) {
	l.refresh()
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.skills[id]
	return s, ok
}

// Command returns a command by id.
func (l *Loader) Command(id string) (*Skill, bool) {
	l.refresh()
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.commands[id]
	return c, ok
}

// List returns all skills sorted by id.
func (l *Loader) List() []*Skill {
	l.refresh()
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Skill, 0, len(l.skills))
	for _, s := range l.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Commands returns all commands sorted by id.
func (l *Loader) Commands() []*Skill {
	l.refresh()
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Skill, 0, len(l.commands))
	for _, c := range l.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Watch starts watching both directories; any event invalidates the cache.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	l.watcher = watcher

	ctx, cancel := context.WithCancel(ctx)
	l.cancelCtx = cancel

	go l.watchLoop(ctx)

	for _, dir := range []string{l.skillsDir, l.cmdDir} {
		if err := l.watchRecursive(dir); err != nil {
			// Directory may not exist yet
			logging.Debugf("[skills] Could not watch %s: %v", dir, err)
		}
	}
	return nil
}

func (l *Loader) watchRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if err := l.watcher.Add(path); err != nil {
				logging.Debugf("[skills] Could not watch %s: %v", path, err)
			}
		}
		return nil
	})
}

func (l *Loader) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if strings.HasSuffix(strings.ToLower(event.Name), ".md") {
				logging.Debugf("[skills] File event: %s %s", event.Op, event.Name)
				l.Invalidate()
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			logging.Errorf("[skills] Watch error: %v", err)
		}
	}
}

// Stop stops the filesystem watcher.
func (l *Loader) Stop() {
	if l.cancelCtx != nil {
		l.cancelCtx()
	}
	if l.watcher != nil {
		l.watcher.Close()
	}
}
