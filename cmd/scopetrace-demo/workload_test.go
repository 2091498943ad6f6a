package main

import (
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gburgyan/go-scopetrace"
)

type failingReports struct {
	mu    sync.Mutex
	tag   string
	err   error
	lines int
}

func (s *failingReports) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.Contains(line, s.tag) && !strings.HasSuffix(line, scopetrace.StartLabel) {
		return s.err
	}
	s.lines++
	return nil
}

func Test_RunSucceeds(t *testing.T) {
	s := &failingReports{tag: "never"}
	w := &workload{tracer: scopetrace.New(s), workers: 2}

	require.NoError(t, w.run("ok"))
	assert.Positive(t, s.lines)
}

func Test_RunReturnsWorkerSinkErrors(t *testing.T) {
	boom := errors.New("sink gone")
	s := &failingReports{tag: "[f1]", err: boom}
	w := &workload{tracer: scopetrace.New(s), workers: 2}

	err := w.run("failing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}
