package sink

import (
	"io"
	"strings"

	"github.com/fatih/color"
)

// Console writes lines to a terminal, highlighting the notes the tracer adds when its own
// output has distorted a measurement.
type Console struct {
	w         io.Writer
	highlight *color.Color
}

// NewConsole creates a console sink writing to w. Color follows fatih/color's detection of
// whether stdout is a terminal and honors NO_COLOR.
func NewConsole(w io.Writer) *Console {
	return &Console{
		w:         w,
		highlight: color.New(color.FgYellow, color.Bold),
	}
}

// WithoutColor disables highlighting on this sink.
func (c *Console) WithoutColor() *Console {
	c.highlight.DisableColor()
	return c
}

// WithColor forces highlighting on, even when the output is not a terminal.
func (c *Console) WithColor() *Console {
	c.highlight.EnableColor()
	return c
}

// WriteLine writes line, in color when it carries an overhead note.
func (c *Console) WriteLine(line string) error {
	if isOverheadNote(line) {
		line = c.highlight.Sprint(line)
	}
	_, err := io.WriteString(c.w, line+"\n")
	return err
}

func isOverheadNote(line string) bool {
	return strings.Contains(line, "(!!! ") || strings.Contains(line, "(*** ")
}
