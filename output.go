package scopetrace

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hako/durafmt"
)

// DurationFormatter is a function to format a reported duration in whatever way you need.
type DurationFormatter func(d time.Duration) string

// UnitFormatter renders durations as a fixed-point count of unit followed by suffix,
// e.g. "12.500000ms".
func UnitFormatter(unit time.Duration, suffix string) DurationFormatter {
	return func(d time.Duration) string {
		return strconv.FormatFloat(float64(d)/float64(unit), 'f', 6, 64) + suffix
	}
}

var (
	Seconds      = UnitFormatter(time.Second, "s")
	Milliseconds = UnitFormatter(time.Millisecond, "ms")
	Microseconds = UnitFormatter(time.Microsecond, "us")
	Nanoseconds  = UnitFormatter(time.Nanosecond, "ns")
)

// HumanDuration renders durations as words ("1 second 250 milliseconds"). Sub-microsecond
// precision is lost.
func HumanDuration(d time.Duration) string {
	return durafmt.Parse(d).String()
}

// FormatterForUnit maps a unit name (s, ms, us, ns or human) to its formatter.
func FormatterForUnit(unit string) (DurationFormatter, bool) {
	switch strings.ToLower(unit) {
	case "s":
		return Seconds, true
	case "ms", "":
		return Milliseconds, true
	case "us", "µs":
		return Microseconds, true
	case "ns":
		return Nanoseconds, true
	case "human":
		return HumanDuration, true
	}
	return nil, false
}

// header identifies a performance scope in its output lines: "file:line (function) [tag]".
func (s CallSite) header(tag string) string {
	b := strings.Builder{}
	b.WriteString(s.location())
	b.WriteString(" [")
	b.WriteString(tag)
	b.WriteString("]")
	return b.String()
}

// location is "file:line (function)".
func (s CallSite) location() string {
	return s.File + ":" + strconv.Itoa(s.Line) + " (" + s.Function + ")"
}

// reportLine assembles the output of a finished performance scope.
func reportLine(indent, prefix, header, report string) string {
	return indent + prefix + ":" + header + ", " + report
}

// announceLine assembles the output of a performance scope that just began.
func announceLine(indent, prefix, header string) string {
	return indent + prefix + ":" + header + "  " + StartLabel
}

// processingLine is shown before an expression is evaluated.
func processingLine(indent, prefix string, site CallSite, expr string) string {
	return indent + prefix + ":Processing " + expr + "  From " + site.location()
}

// resultLine is shown after an expression has been evaluated.
func resultLine(indent, prefix string, site CallSite, expr string, value any) string {
	return indent + prefix + ":->" + site.location() + "\t" + expr + " = " + formatValue(value)
}

// formatValue renders an evaluated expression the same way reports render details.
func formatValue(value any) string {
	return fmt.Sprintf("%+v", value)
}
