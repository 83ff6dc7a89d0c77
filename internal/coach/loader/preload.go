package loader

import "context"

// preloadFuture is a settled-once handle shared by concurrent callers.
type preloadFuture struct {
	done   chan struct{}
	result *Result
}

// Preload warms the shared load result. Concurrent callers while a
// preload is in flight share the pending future instead of issuing
// duplicate work; once it settles the in-flight handle is cleared so a
// later Preload after ClearPreloaded starts fresh.
func (s *Service) Preload(ctx context.Context, opts Options) *Result {
	s.preloadMu.Lock()
	if s.preloaded != nil {
		r := s.preloaded
		s.preloadMu.Unlock()
		return r
	}

	if s.inflight == nil {
		f := &preloadFuture{done: make(chan struct{})}
		s.inflight = f
		go func() {
			result := s.LoadContextParallel(ctx, opts)
			s.preloadMu.Lock()
			s.preloaded = result
			s.inflight = nil
			s.preloadMu.Unlock()
			f.result = result
			close(f.done)
		}()
	}
	f := s.inflight
	s.preloadMu.Unlock()

	<-f.done
	return f.result
}

// Preloaded returns the warmed result, or nil when none is ready.
func (s *Service) Preloaded() *Result {
	s.preloadMu.Lock()
	defer s.preloadMu.Unlock()
	return s.preloaded
}

// ClearPreloaded drops the warmed result so the next Preload reloads.
func (s *Service) ClearPreloaded() {
	s.preloadMu.Lock()
	defer s.preloadMu.Unlock()
	s.preloaded = nil
}
