package scopetrace

import (
	"slices"
	"time"

	"github.com/cockroachdb/errors"
)

// reserveSlack is added on top of the capacity when reserving buffer storage, leaving room for
// the lines written while a flush is being accounted for.
const reserveSlack = 3

// outputCache buffers formatted lines until they can be written without disturbing an open
// measurement.
type outputCache struct {
	lines    []string
	capacity int
	grow     bool

	// overhead is the time spent growing the buffer since the last flush.
	overhead time.Duration

	flushes int
	written int
	reports int
}

// buffered reports whether lines are held back at all.
func (c *outputCache) buffered() bool {
	return c.capacity > 1
}

func (c *outputCache) reserve() {
	if !c.buffered() {
		return
	}
	if n := c.capacity + reserveSlack - len(c.lines); n > 0 {
		c.lines = slices.Grow(c.lines, n)
	}
}

// emitLocked routes a finished line to the sink, either right away or through the cache.
// performance marks lines that carry a timing report.
func (t *Tracer) emitLocked(line string, performance bool) error {
	if performance {
		t.cache.reports++
	}
	if !t.cache.buffered() {
		return t.writeLocked(line)
	}

	t.cache.lines = append(t.cache.lines, line)
	switch n := len(t.cache.lines); {
	case n == t.cache.capacity:
		return t.flushLocked()
	case n > t.cache.capacity:
		if t.cache.grow {
			t.growLocked()
			return nil
		}
		return t.flushLocked()
	}
	return nil
}

// growLocked doubles the capacity until the buffer fits under it again. The time it takes is
// charged to the next flush.
func (t *Tracer) growLocked() {
	start := t.clock.Now()
	capacity := max(t.cache.capacity, 1)
	for capacity <= len(t.cache.lines) {
		capacity *= 2
	}
	t.cache.capacity = capacity
	t.cache.reserve()
	t.cache.overhead += t.clock.Now().Sub(start)
	t.log.Debug("trace cache grown", "capacity", capacity)
}

// flushLocked writes every buffered line out in order and then marks all still-open series
// with what the flush, and any cache growth before it, cost them.
func (t *Tracer) flushLocked() error {
	if len(t.cache.lines) == 0 {
		return nil
	}

	start := t.clock.Now()
	var err error
	for _, line := range t.cache.lines {
		err = errors.CombineErrors(err, t.writeLocked(line))
	}
	clear(t.cache.lines)
	t.cache.lines = t.cache.lines[:0]
	end := t.clock.Now()
	t.cache.flushes++

	note := FlushNote(end.Sub(start), t.format)
	if t.cache.overhead > 0 {
		growth := GrowthNote(t.cache.overhead, t.format)
		t.cache.overhead = 0
		err = errors.CombineErrors(err, t.writeLocked(growth))
		note = growth + " " + note
	}

	t.series.annotateOpen(note)
	t.log.Debug("trace cache flushed", "duration", end.Sub(start), "open_series", len(t.series.open))
	return err
}

// GrowthNote reports the time spent growing the cache since the last flush. It is written as
// its own line and also prefixed to the flush note of every open series.
func GrowthNote(d time.Duration, format DurationFormatter) string {
	return "(*** cache growth induced " + format(d) + " overhead since last flush ***)"
}

// FlushNote is the prefix put on the latest checkpoint of each open series after a flush that
// took d.
func FlushNote(d time.Duration, format DurationFormatter) string {
	return "(!!! flush induced " + format(d) + " overhead in this measure !!!) "
}
