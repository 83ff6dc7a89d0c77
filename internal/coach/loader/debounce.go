package loader

import "time"

// debouncedCall is one in-flight (or recently settled) keyed call.
type debouncedCall struct {
	done  chan struct{}
	value any
	err   error
	at    time.Time
}

// DebouncedCall coalesces calls sharing a key: callers arriving within
// the window get the first call's result instead of re-invoking fn.
// Entries are garbage-collected 2×window after creation.
func (s *Service) DebouncedCall(key string, window time.Duration, fn func() (any, error)) (any, error) {
	s.debounceMu.Lock()
	if s.debounced == nil {
		s.debounced = make(map[string]*debouncedCall)
	}

	if entry, ok := s.debounced[key]; ok && time.Since(entry.at) < window {
		s.debounceMu.Unlock()
		<-entry.done
		return entry.value, entry.err
	}

	entry := &debouncedCall{done: make(chan struct{}), at: time.Now()}
	s.debounced[key] = entry
	s.debounceMu.Unlock()

	time.AfterFunc(2*window, func() {
		s.debounceMu.Lock()
		if s.debounced[key] == entry {
			delete(s.debounced, key)
		}
		s.debounceMu.Unlock()
	})

	entry.value, entry.err = fn()
	close(entry.done)
	return entry.value, entry.err
}

// debouncedLen reports live debounce entries. Tests only.
func (s *Service) debouncedLen() int {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	return len(s.debounced)
}
