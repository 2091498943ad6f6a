package scopetrace

import (
	"strings"
	"time"
)

const (
	// StartLabel is the checkpoint every performance series begins with.
	StartLabel = "Start measure"

	// EndLabel is the checkpoint every performance series ends with.
	EndLabel = "End measure"

	// NotEnoughTrace is reported in place of deltas when a series has fewer than two
	// checkpoints at close time.
	NotEnoughTrace = "Not enough trace to display results."
)

// Checkpoint is one named instant in a performance series.
type Checkpoint struct {
	Label string
	At    time.Time
}

// seriesKey addresses a performance series. Two scopes opened with the same key at the same
// time share one series.
type seriesKey struct {
	file     string
	function string
	tag      string
}

// seriesStore holds the checkpoints of every performance scope that has not ended yet.
type seriesStore struct {
	open map[seriesKey][]Checkpoint
}

// add appends a checkpoint, creating the series if it is not there.
func (s *seriesStore) add(key seriesKey, label string, at time.Time) {
	if s.open == nil {
		s.open = map[seriesKey][]Checkpoint{}
	}
	s.open[key] = append(s.open[key], Checkpoint{Label: label, At: at})
}

// closeAndCompute appends the end checkpoint, renders the deltas between adjacent checkpoints
// and removes the series.
func (s *seriesStore) closeAndCompute(key seriesKey, endLabel string, at time.Time, format DurationFormatter) string {
	s.add(key, endLabel, at)
	checkpoints := s.open[key]
	delete(s.open, key)
	return deltaReport(checkpoints, format)
}

// annotateOpen prefixes the latest checkpoint label of every open series, so the delta that
// follows it carries the note.
func (s *seriesStore) annotateOpen(note string) {
	for _, checkpoints := range s.open {
		if len(checkpoints) == 0 {
			continue
		}
		last := &checkpoints[len(checkpoints)-1]
		last.Label = note + last.Label
	}
}

func deltaReport(checkpoints []Checkpoint, format DurationFormatter) string {
	if len(checkpoints) < 2 {
		return NotEnoughTrace
	}

	b := strings.Builder{}
	for i := 1; i < len(checkpoints); i++ {
		prev, cur := checkpoints[i-1], checkpoints[i]
		if i > 1 {
			b.WriteString(", ")
		}
		b.WriteString("<")
		b.WriteString(cur.Label)
		b.WriteString("> - <")
		b.WriteString(prev.Label)
		b.WriteString("> = ")
		b.WriteString(format(cur.At.Sub(prev.At)))
	}
	if len(checkpoints) > 2 {
		first, last := checkpoints[0], checkpoints[len(checkpoints)-1]
		b.WriteString(", Full time = ")
		b.WriteString(format(last.At.Sub(first.At)))
	}
	return b.String()
}
