package sink

import (
	"io"

	"github.com/cockroachdb/errors"
)

// LineWriter is anything that accepts trace lines.
type LineWriter interface {
	WriteLine(line string) error
}

// Multi writes every line to each of its sinks.
type Multi struct {
	sinks []LineWriter
}

// NewMulti creates a sink fanning out to sinks in order.
func NewMulti(sinks ...LineWriter) *Multi {
	return &Multi{sinks: sinks}
}

// WriteLine writes line to every sink, even after one of them fails.
func (m *Multi) WriteLine(line string) error {
	var err error
	for _, s := range m.sinks {
		err = errors.CombineErrors(err, s.WriteLine(line))
	}
	return err
}

// Close closes every sink that can be closed.
func (m *Multi) Close() error {
	var err error
	for _, s := range m.sinks {
		if closer, ok := s.(io.Closer); ok {
			err = errors.CombineErrors(err, closer.Close())
		}
	}
	return err
}
