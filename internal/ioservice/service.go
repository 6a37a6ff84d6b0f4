// Package ioservice turns OS file descriptor readiness into typed
// emissions, the collaborator behind the IO word (package dsl). Per
// SPEC_FULL.md §1, the platform polling implementation itself (epoll/
// kqueue/IOCP) is out of scope; this package instead dedicates one blocking
// reader goroutine per registered descriptor — the same "one goroutine per
// connection" shape the teacher's ws.WSHandler pump loop uses for a single
// websocket, generalized here to arbitrary *os.File descriptors. Close wakes
// every reader by closing its registered descriptor, then joins them; a
// self-pipe with its own drain goroutine is kept alongside and shut down by
// Close as well.
package ioservice

import (
	"errors"
	"log/slog"
	"os"
	"sync"
)

// Mask selects which readiness condition a registration cares about.
type Mask int

const (
	Readable Mask = 1 << iota
	Writable
)

// Event is delivered to a registration's callback when its descriptor
// becomes ready.
type Event struct {
	Mask Mask
	Err  error
}

// Service owns the self-pipe and the set of live registrations.
type Service struct {
	logger *slog.Logger

	mu       sync.Mutex
	wakeR    *os.File
	wakeW    *os.File
	closed   bool
	watchers map[*watcher]struct{}
	wg       sync.WaitGroup
}

type watcher struct {
	f        *os.File
	mask     Mask
	onReady  func(Event)
	stopOnce sync.Once
}

// New constructs a Service and arms its self-pipe.
func New(logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	s := &Service{logger: logger, wakeR: r, wakeW: w, watchers: make(map[*watcher]struct{})}
	s.wg.Add(1)
	go s.drainWake()
	return s, nil
}

// drainWake exists only so Close's write to wakeW always has a reader; the
// self-pipe's job here is purely to give Close a fd it can always safely
// write to from any goroutine without racing a watcher's own lifecycle.
func (s *Service) drainWake() {
	defer s.wg.Done()
	buf := make([]byte, 16)
	for {
		n, err := s.wakeR.Read(buf)
		if n > 0 && buf[0] == 'x' {
			return
		}
		if err != nil {
			return
		}
	}
}

// Register arms onReady to be called (on its own goroutine) whenever f
// becomes ready for mask. The returned cancel closes f and stops watching
// it; it does not close f twice if the caller also closes it independently.
func (s *Service) Register(f *os.File, mask Mask, onReady func(Event)) (cancel func(), err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}, os.ErrClosed
	}
	w := &watcher{f: f, mask: mask, onReady: onReady}
	s.watchers[w] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.pump(w)

	return func() { s.stop(w) }, nil
}

func (s *Service) pump(w *watcher) {
	defer s.wg.Done()
	buf := make([]byte, 4096)
	for {
		if w.mask&Readable != 0 {
			n, err := w.f.Read(buf)
			if n > 0 {
				w.onReady(Event{Mask: Readable})
			}
			if err != nil {
				if errors.Is(err, os.ErrClosed) {
					// f was closed locally (cancel or Close): stop silently.
					s.forget(w)
					return
				}
				w.onReady(Event{Mask: Readable, Err: err})
				s.forget(w)
				return
			}
		} else {
			// Writable-only registrations have nothing to block on portably
			// without platform polling; report ready once and let the
			// caller's own write calls surface backpressure.
			w.onReady(Event{Mask: Writable})
			s.forget(w)
			return
		}
	}
}

func (s *Service) stop(w *watcher) {
	w.stopOnce.Do(func() {
		_ = w.f.Close()
	})
	s.forget(w)
}

func (s *Service) forget(w *watcher) {
	s.mu.Lock()
	delete(s.watchers, w)
	s.mu.Unlock()
}

// Close stops every watcher and releases the self-pipe. Idempotent.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	watchers := make([]*watcher, 0, len(s.watchers))
	for w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mu.Unlock()

	for _, w := range watchers {
		s.stop(w)
	}
	_, _ = s.wakeW.Write([]byte("x"))
	s.wg.Wait()
	return s.wakeW.Close()
}
