// Package sink holds the line consumers a scopetrace.Tracer can write to: the console, any
// io.Writer, an append-only log file, a structured logger, or several of those at once.
package sink

import (
	"io"

	"github.com/cockroachdb/errors"
)

var (
	// ErrSinkOpen is returned when a sink cannot be opened for writing.
	ErrSinkOpen = errors.New("trace sink cannot be opened")

	// ErrSinkClosed is returned when writing to a sink after Close.
	ErrSinkClosed = errors.New("trace sink closed")
)

// Writer writes each line followed by a newline to an io.Writer.
type Writer struct {
	w io.Writer
}

// NewWriter creates a sink writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteLine writes line and a newline.
func (s *Writer) WriteLine(line string) error {
	_, err := io.WriteString(s.w, line+"\n")
	return err
}
