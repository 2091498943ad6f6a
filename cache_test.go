package scopetrace

import (
	"strconv"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PassThroughKeepsOrder(t *testing.T) {
	for _, capacity := range []uint{0, 1} {
		tr, s, _ := newTestTracer(WithCacheCapacity(capacity), WithIdentity(fixedIdentity(1)))

		outer := tr.BeginHierarchy(site("outer", 1))
		for i := 0; i < 4; i++ {
			require.NoError(t, tr.Message(site("m", 2), strconv.Itoa(i)))
			assert.Len(t, s.Lines(), i+1)
		}
		require.NoError(t, outer.End())

		assert.Equal(t, []string{
			"  0.000000ms:1:0",
			"  0.000000ms:1:1",
			"  0.000000ms:1:2",
			"  0.000000ms:1:3",
		}, s.Lines())
		assert.Equal(t, 0, tr.Stats().Flushes)
	}
}

func Test_CacheFlushesWhenFull(t *testing.T) {
	tr, s, _ := newTestTracer(WithCacheCapacity(3), WithIdentity(fixedIdentity(1)))

	outer := tr.BeginHierarchy(site("outer", 1))
	for i := 1; i <= 5; i++ {
		require.NoError(t, tr.Message(site("m", 2), strconv.Itoa(i)))
		if i < 3 {
			assert.Empty(t, s.Lines())
		} else {
			assert.Len(t, s.Lines(), 3)
		}
	}
	assert.Equal(t, []string{"  0.000000ms:1:1", "  0.000000ms:1:2", "  0.000000ms:1:3"}, s.Lines())
	assert.Equal(t, 2, tr.Stats().Buffered)

	require.NoError(t, outer.End())
	assert.Len(t, s.Lines(), 5)
	assert.Equal(t, "  0.000000ms:1:5", s.Lines()[4])
	assert.Equal(t, 2, tr.Stats().Flushes)
}

func Test_CacheFlushesWhenDepthReturnsToZero(t *testing.T) {
	tr, s, _ := newTestTracer(WithCacheCapacity(10))

	scope := tr.BeginPerformance(site("f", 1), "f")
	require.NoError(t, tr.Message(site("m", 2), "inside"))
	assert.Empty(t, s.Lines())

	require.NoError(t, scope.End())
	assert.Len(t, s.Lines(), 2)
	assert.Equal(t, 0, tr.Stats().Buffered)
}

func Test_DisablingCacheFlushesBuffered(t *testing.T) {
	tr, s, _ := newTestTracer(WithCacheCapacity(10))

	outer := tr.BeginHierarchy(site("outer", 1))
	require.NoError(t, tr.Message(site("m", 2), "a"))
	require.NoError(t, tr.Message(site("m", 2), "b"))
	assert.Empty(t, s.Lines())

	tr.SetCacheCapacity(1)
	assert.Len(t, s.Lines(), 2)

	require.NoError(t, tr.Message(site("m", 2), "c"))
	assert.Len(t, s.Lines(), 3)
	require.NoError(t, outer.End())
}

func Test_CacheGrowthChargedToNextFlush(t *testing.T) {
	tr, s, clock := newTestTracer(WithCacheCapacity(4), WithCacheGrowth(true))

	outer := tr.BeginHierarchy(site("outer", 1))
	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Message(site("m", 2), "x"))
	}
	tr.SetCacheCapacity(2)
	clock.step = time.Millisecond

	require.NoError(t, tr.Message(site("m", 2), "overflow"))
	assert.Empty(t, s.Lines())
	stats := tr.Stats()
	assert.Equal(t, 8, stats.Capacity)
	assert.Equal(t, 4, stats.Buffered)
	assert.Equal(t, time.Millisecond, stats.Overhead)

	require.NoError(t, outer.End())
	lines := s.Lines()
	require.Len(t, lines, 5)
	assert.Equal(t, "(*** cache growth induced 1.000000ms overhead since last flush ***)", lines[4])
	assert.Equal(t, time.Duration(0), tr.Stats().Overhead)
}

func Test_CacheGrowthAnnotatesOpenSeries(t *testing.T) {
	tr, s, clock := newTestTracer(WithCacheCapacity(4), WithCacheGrowth(true))

	scope := tr.BeginPerformance(site("f", 1), "grown")
	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Message(site("m", 2), "x"))
	}
	tr.SetCacheCapacity(2)
	clock.step = time.Millisecond
	require.NoError(t, tr.Message(site("m", 2), "overflow"))
	assert.Equal(t, time.Millisecond, tr.Stats().Overhead)

	tr.SetCacheCapacity(1)
	lines := s.Lines()
	require.Len(t, lines, 5)
	assert.Equal(t, GrowthNote(time.Millisecond, Milliseconds), lines[4])

	require.NoError(t, scope.End())
	lines = s.Lines()
	require.Len(t, lines, 6)
	note := GrowthNote(time.Millisecond, Milliseconds) + " " + FlushNote(time.Millisecond, Milliseconds)
	assert.Contains(t, lines[5], "<End measure> - <"+note+StartLabel+">")
}

func Test_CacheOverflowWithoutGrowthFlushes(t *testing.T) {
	tr, s, _ := newTestTracer(WithCacheCapacity(4))

	outer := tr.BeginHierarchy(site("outer", 1))
	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Message(site("m", 2), "x"))
	}
	tr.SetCacheCapacity(2)
	require.NoError(t, tr.Message(site("m", 2), "overflow"))

	assert.Len(t, s.Lines(), 4)
	assert.Equal(t, 2, tr.CacheCapacity())
	require.NoError(t, outer.End())
}

func Test_SinkErrorReturned(t *testing.T) {
	boom := errors.New("disk full")
	tr, s, _ := newTestTracer()
	s.onWrite = func(string) error { return boom }

	err := tr.BeginPerformance(site("f", 1), "f").End()

	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.True(t, errors.Is(tr.Err(), boom))
}

func Test_FlushDrainsEverythingDespiteErrors(t *testing.T) {
	boom := errors.New("flaky")
	tr, s, _ := newTestTracer(WithCacheCapacity(3))
	s.onWrite = func(line string) error {
		if line == "  0.000000ms:1:b" {
			return boom
		}
		return nil
	}
	tr.identity = fixedIdentity(1)

	outer := tr.BeginHierarchy(site("outer", 1))
	require.NoError(t, tr.Message(site("m", 2), "a"))
	require.NoError(t, tr.Message(site("m", 2), "b"))
	err := tr.Message(site("m", 2), "c")

	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, []string{"  0.000000ms:1:a", "  0.000000ms:1:c"}, s.Lines())
	assert.Equal(t, 0, tr.Stats().Buffered)
	require.NoError(t, outer.End())
}

type closingSink struct {
	recordingSink
	closed int
}

func (s *closingSink) Close() error {
	s.closed++
	return nil
}

func Test_FinalizeFlushesOnce(t *testing.T) {
	s := &closingSink{}
	tr := New(s, WithClock(newFakeClock()), WithCacheCapacity(10), WithAnnounceScopeStart(false))

	scope := tr.BeginHierarchy(site("open", 1))
	require.NoError(t, tr.Message(site("m", 2), "pending"))
	assert.Empty(t, s.Lines())

	require.NoError(t, tr.Finalize())
	require.NoError(t, tr.Finalize())
	assert.Len(t, s.Lines(), 1)
	assert.Equal(t, 1, s.closed)
	require.NoError(t, scope.End())
}
