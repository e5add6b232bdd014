package testutils

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/conneroisu/shelfsearch/internal/debounce"
	"github.com/stretchr/testify/require"
)

// FakeScheduler is a manual clock implementing debounce.Scheduler. Callbacks
// run synchronously inside Advance, in deadline order.
type FakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	s        *FakeScheduler
	deadline time.Duration
	seq      int
	f        func()
	stopped  bool
	fired    bool
}

// NewFakeScheduler returns a scheduler at virtual time zero.
func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{}
}

// AfterFunc implements debounce.Scheduler.
func (s *FakeScheduler) AfterFunc(d time.Duration, f func()) debounce.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &fakeTimer{s: s, deadline: s.now + d, seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves virtual time forward by d and runs every timer whose
// deadline has been reached.
func (s *FakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		due := s.nextDue(target)
		if due == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = due.deadline
		due.fired = true
		s.mu.Unlock()

		due.f()
	}
}

// nextDue returns the earliest live timer at or before target. Callers hold mu.
func (s *FakeScheduler) nextDue(target time.Duration) *fakeTimer {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	s.timers = live
	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].deadline == s.timers[j].deadline {
			return s.timers[i].seq < s.timers[j].seq
		}
		return s.timers[i].deadline < s.timers[j].deadline
	})
	if len(s.timers) == 0 || s.timers[0].deadline > target {
		return nil
	}
	return s.timers[0]
}

// Now returns the virtual time elapsed since creation.
func (s *FakeScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Armed returns the number of timers that are neither stopped nor fired.
func (s *FakeScheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// WriteFile writes content under dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// SampleCatalogYAML is a small book catalog shared by package tests.
const SampleCatalogYAML = `columns: [isbn, title, author]
rows:
  - ["9780132350884", "Clean Code", "Robert C. Martin"]
  - ["9780201616224", "The Pragmatic Programmer", "Andrew Hunt"]
  - ["9780201485677", "Refactoring", "Martin Fowler"]
`
