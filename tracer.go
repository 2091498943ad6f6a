// Package scopetrace provides an in-process call-hierarchy tracer and nested performance
// timer for Go applications. It prints the path of traced calls indented by nesting depth and
// reports the time spent between named checkpoints of timed scopes.
//
// Design Philosophy:
//
// The tracer measures code it runs inside of, so every line it prints perturbs the timings
// it is trying to report. To keep that perturbation small, output can be batched in a cache
// that is only written out when it is full or when no traced scope is open anywhere. When a
// flush has to happen while timed scopes are still open, the cost of the flush is written
// into the next delta of each of those scopes so the distortion is visible rather than silent.
//
// Scopes are bound to lexical lifetime with defer:
//
//	scope := tracer.Performance("load")
//	defer scope.End()
//	...
//	scope.Checkpoint("parsed")
//
// Like the rest of the package, End panics when called twice. That is a bug in the calling
// code and should be fixed during development rather than handled at runtime.
package scopetrace

import (
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"fortio.org/safecast"
	"github.com/cockroachdb/errors"

	"github.com/gburgyan/go-scopetrace/internal/logger"
)

// Sink accepts finished lines of trace output. Sinks are called with the tracer's lock held
// and must not call back into the Tracer.
type Sink interface {
	WriteLine(line string) error
}

// Tracer owns all the shared state of the tracing engine: per-goroutine depth, the call-site
// memo, open performance series and the output cache. All exported methods are safe for
// concurrent use.
type Tracer struct {
	mu sync.Mutex

	clock    Clock
	identity Identity
	sink     Sink
	log      *slog.Logger
	format   DurationFormatter

	depth  depthTracker
	series seriesStore
	cache  outputCache

	active        bool
	announceStart bool

	// flat counts FlatValue evaluations in flight, per goroutine and in total. Display is
	// muted while any is running.
	flat      map[ThreadID]int
	flatTotal int

	finalized     bool

	// err is the first sink failure seen by this tracer.
	err error
}

// Option configures a Tracer at construction.
type Option func(t *Tracer)

// WithClock replaces the system clock. Mostly useful in tests.
func WithClock(c Clock) Option {
	return func(t *Tracer) { t.clock = c }
}

// WithIdentity replaces the goroutine identity provider.
func WithIdentity(i Identity) Option {
	return func(t *Tracer) { t.identity = i }
}

// WithLogger sets the logger used for the tracer's own diagnostics. Trace output never goes
// through this logger; use sink.LoggerSink for that.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracer) { t.log = l }
}

// WithDurationFormatter sets how deltas and overhead annotations are rendered.
func WithDurationFormatter(f DurationFormatter) Option {
	return func(t *Tracer) { t.format = f }
}

// WithCacheCapacity sets the initial output cache capacity. See SetCacheCapacity.
func WithCacheCapacity(n uint) Option {
	return func(t *Tracer) { t.cache.capacity = capacityFromUint(n) }
}

// WithCacheGrowth enables growing the cache instead of flushing it when the buffered lines
// have already passed the capacity, which happens when the capacity is lowered under them.
func WithCacheGrowth(enabled bool) Option {
	return func(t *Tracer) { t.cache.grow = enabled }
}

// WithAnnounceScopeStart controls whether performance scopes print a line when they begin.
func WithAnnounceScopeStart(enabled bool) Option {
	return func(t *Tracer) { t.announceStart = enabled }
}

// WithTraceActive sets the initial state of hierarchy display. See SetTraceActive.
func WithTraceActive(enabled bool) Option {
	return func(t *Tracer) { t.active = enabled }
}

// New creates a Tracer writing to sink. By default the cache is disabled (every line is written
// immediately), tracing is active and performance scopes announce their start.
//
// Panics if sink is nil.
func New(sink Sink, opts ...Option) *Tracer {
	if sink == nil {
		panic("sink must be defined")
	}
	t := &Tracer{
		clock:         SystemClock{},
		identity:      GoroutineIdentity{},
		sink:          sink,
		log:           logger.Discard(),
		format:        Milliseconds,
		active:        true,
		announceStart: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.cache.reserve()
	return t
}

// SetCacheCapacity sets the number of lines buffered before a flush is forced. A capacity of
// one or zero disables buffering; any lines still buffered are written out immediately so the
// output order is kept.
func (t *Tracer) SetCacheCapacity(n uint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	capacity := capacityFromUint(n)
	if capacity == t.cache.capacity {
		return
	}
	t.cache.capacity = capacity
	if !t.cache.buffered() {
		_ = t.flushLocked()
		return
	}
	t.cache.reserve()
}

// CacheCapacity returns the current cache capacity, which may have grown past the configured
// value when cache growth is enabled.
func (t *Tracer) CacheCapacity() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.capacity
}

// SetTraceActive turns hierarchy display (Message, Value) on or off. The hierarchy is still
// tracked while inactive so indentation is right when display resumes. Performance reports are
// not affected.
func (t *Tracer) SetTraceActive(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = enabled
}

// IsTraceActive reports whether hierarchy display is on.
func (t *Tracer) IsTraceActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// SetAnnounceScopeStart controls whether performance scopes print a line when they begin.
func (t *Tracer) SetAnnounceScopeStart(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.announceStart = enabled
}

// Err returns the first sink failure seen by the tracer, if any.
func (t *Tracer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Finalize writes out whatever is still buffered and closes the sink if it is an io.Closer.
// It is meant to run once at shutdown; later calls do nothing and return nil.
func (t *Tracer) Finalize() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finalized {
		return nil
	}
	t.finalized = true

	err := t.flushLocked()
	if closer, ok := t.sink.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil {
			err = errors.CombineErrors(err, errors.Wrap(cerr, "closing trace sink"))
		}
	}
	t.log.Debug("tracer finalized", "flushes", t.cache.flushes, "lines", t.cache.written)
	return err
}

// Stats is a snapshot of the tracer's bookkeeping.
type Stats struct {
	Flushes      int
	LinesWritten int
	Reports      int
	Buffered     int
	Capacity     int
	OpenSeries   int
	Depth        int
	Overhead     time.Duration
}

// Stats returns a snapshot of the tracer's counters.
func (t *Tracer) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		Flushes:      t.cache.flushes,
		LinesWritten: t.cache.written,
		Reports:      t.cache.reports,
		Buffered:     len(t.cache.lines),
		Capacity:     t.cache.capacity,
		OpenSeries:   len(t.series.open),
		Depth:        t.depth.total,
		Overhead:     t.cache.overhead,
	}
}

// prefixLocked renders the "<wall>ms:<goroutine>" stamp that starts every trace line.
func (t *Tracer) prefixLocked(id ThreadID) string {
	wall := t.clock.Wall()
	ms := float64(wall.UnixNano()) / float64(time.Millisecond)
	return strconv.FormatFloat(ms, 'f', 6, 64) + "ms:" + strconv.FormatInt(int64(id), 10)
}

// writeLocked hands one line to the sink, remembering the first failure.
func (t *Tracer) writeLocked(line string) error {
	if err := t.sink.WriteLine(line); err != nil {
		err = errors.Wrap(err, "writing trace line")
		if t.err == nil {
			t.err = err
		}
		t.log.Error("trace sink write failed", "error", err)
		return err
	}
	t.cache.written++
	return nil
}

func capacityFromUint(n uint) int {
	c, err := safecast.Conv[int](n)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return c
}
