package scopetrace

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// HierarchyScope brackets a traced call so that everything printed inside it is indented one
// level deeper. It does not measure time.
type HierarchyScope struct {
	t    *Tracer
	id   ThreadID
	site siteKey

	// recorded is set when this scope added a depth level and must remove it on End.
	recorded bool

	ended atomic.Bool
}

// PerformanceScope measures the time between its start, any checkpoints and its end, and
// reports the deltas when it ends.
type PerformanceScope struct {
	t      *Tracer
	id     ThreadID
	key    seriesKey
	header string

	ended atomic.Bool
}

// BeginHierarchy opens a hierarchy scope for site. Re-entering a function that is already open
// from a different line does not add a level; that keeps recursion from drifting the output
// across the screen.
func (t *Tracer) BeginHierarchy(site CallSite) *HierarchyScope {
	s := &HierarchyScope{
		t:    t,
		id:   t.identity.Current(),
		site: siteKey{file: site.File, function: site.Function},
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	s.recorded = t.depth.enterHierarchy(s.id, s.site, site.Line)
	return s
}

// Hierarchy opens a hierarchy scope for the caller's own call site.
func (t *Tracer) Hierarchy() *HierarchyScope {
	return t.BeginHierarchy(callerSite(2))
}

// End closes the scope. It returns the sink error of a flush that closing the scope triggered.
//
// Panics if called more than once.
func (s *HierarchyScope) End() error {
	if !s.ended.CompareAndSwap(false, true) {
		panic("scope already ended")
	}
	t := s.t
	t.mu.Lock()
	defer t.mu.Unlock()
	if !s.recorded {
		return t.exitLocked(s.id, nil, false)
	}
	return t.exitLocked(s.id, &s.site, true)
}

// BeginPerformance opens a performance scope for site. The tag tells apart several measured
// sections inside one function; scopes opened with the same site and tag at the same time share
// a series, so concurrent goroutines running the same code should use distinct tags.
func (t *Tracer) BeginPerformance(site CallSite, tag string) *PerformanceScope {
	s := &PerformanceScope{
		t:      t,
		id:     t.identity.Current(),
		key:    seriesKey{file: site.File, function: site.Function, tag: tag},
		header: site.header(tag),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.depth.increment(s.id)
	t.series.add(s.key, StartLabel, t.clock.Now())
	if t.announceStart {
		line := announceLine(t.depth.indent(s.id), t.prefixLocked(s.id), s.header)
		_ = t.emitLocked(line, false)
	}
	return s
}

// Performance opens a performance scope for the caller's own call site.
func (t *Tracer) Performance(tag string) *PerformanceScope {
	return t.BeginPerformance(callerSite(2), tag)
}

// Checkpoint records a named instant. The time is read before the tracer lock is taken so
// waiting on other goroutines does not show up in this scope's deltas.
//
// Panics if the scope has ended.
func (s *PerformanceScope) Checkpoint(label string) {
	t := s.t
	at := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	// End sets ended before taking the lock, so seeing it unset here means the series is
	// still open.
	if s.ended.Load() {
		panic("scope already ended")
	}
	t.series.add(s.key, label, at)
}

// End closes the scope, reports its deltas and removes its series. It returns the sink error,
// if any, of writing the report.
//
// Panics if called more than once.
func (s *PerformanceScope) End() error {
	t := s.t
	at := t.clock.Now()
	if !s.ended.CompareAndSwap(false, true) {
		panic("scope already ended")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	report := t.series.closeAndCompute(s.key, EndLabel, at, t.format)
	line := reportLine(t.depth.indent(s.id), t.prefixLocked(s.id), s.header, report)
	err := t.emitLocked(line, true)
	return errors.CombineErrors(err, t.exitLocked(s.id, nil, true))
}

// exitLocked removes a depth level owned by a scope and flushes the cache once nothing is open
// anywhere, since buffered output can no longer distort a measurement at that point.
func (t *Tracer) exitLocked(id ThreadID, site *siteKey, owned bool) error {
	switch {
	case !owned:
		t.depth.settle()
	case !t.depth.exit(id, site):
		t.log.Debug("scope exit with no depth left", "goroutine", int64(id))
	}
	if t.depth.total == 0 {
		return t.flushLocked()
	}
	return nil
}
