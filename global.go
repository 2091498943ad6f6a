package scopetrace

import (
	"os"
	"sync"

	"github.com/gburgyan/go-scopetrace/sink"
)

var (
	defaultMu     sync.Mutex
	defaultTracer *Tracer
)

// Default returns the process-wide tracer, creating one that prints to stdout on first use.
// Prefer constructing a Tracer with New and passing it around (or via WithTracer); the default
// exists for quick instrumentation.
func Default() *Tracer {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultTracer == nil {
		defaultTracer = New(sink.NewConsole(os.Stdout))
	}
	return defaultTracer
}

// SetDefault replaces the process-wide tracer and returns the previous one, which is not
// finalized.
//
// Panics if t is nil.
func SetDefault(t *Tracer) *Tracer {
	if t == nil {
		panic("tracer must be defined")
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultTracer
	defaultTracer = t
	return prev
}

// Finalize finalizes the default tracer. Call it once on the way out of main.
//
//	defer scopetrace.Finalize()
func Finalize() error {
	return Default().Finalize()
}
