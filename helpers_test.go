package scopetrace

import (
	"sync"
	"time"
)

// fakeClock only moves when told to, or by step on every Now when step is set.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func (c *fakeClock) Wall() time.Time {
	return time.Unix(0, 0)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSink keeps every line it is given. onWrite, if set, runs before a line is recorded
// and can fail the write.
type recordingSink struct {
	mu      sync.Mutex
	lines   []string
	onWrite func(line string) error
}

func (s *recordingSink) WriteLine(line string) error {
	if s.onWrite != nil {
		if err := s.onWrite(line); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	return nil
}

func (s *recordingSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

type fixedIdentity ThreadID

func (i fixedIdentity) Current() ThreadID { return ThreadID(i) }

func newTestTracer(opts ...Option) (*Tracer, *recordingSink, *fakeClock) {
	s := &recordingSink{}
	clock := newFakeClock()
	all := append([]Option{WithClock(clock), WithAnnounceScopeStart(false)}, opts...)
	return New(s, all...), s, clock
}

func site(function string, line int) CallSite {
	return CallSite{Function: function, File: "main.go", Line: line}
}
