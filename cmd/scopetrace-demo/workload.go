package main

import (
	"math/rand/v2"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/gburgyan/go-scopetrace"
)

// workload is a few nested functions, one of them serialized on a mutex, called from several
// goroutines at once.
type workload struct {
	tracer  *scopetrace.Tracer
	workers int
	mu      sync.Mutex
}

func (w *workload) run(title string) error {
	t := w.tracer
	if err := t.Message(scopetrace.Here(), "\n\n "+title+"\n"); err != nil {
		return err
	}

	var g errgroup.Group
	for i := 0; i < w.workers; i++ {
		g.Go(func() error {
			_, err := w.f1()
			return err
		})
	}

	scope := t.Performance("run")
	var f1Err error
	_, err := t.Value(scopetrace.Here(), "f1()", func() any {
		value, err := w.f1()
		f1Err = err
		return value
	})
	if err = errors.CombineErrors(err, f1Err); err != nil {
		return errors.Join(err, scope.End(), g.Wait())
	}
	scope.Checkpoint("This is the middle")
	w.f2()

	return errors.CombineErrors(g.Wait(), scope.End())
}

// f1 returns the sink errors raised by its own scopes. Those of f2 and f3 are dropped where
// they happen; the tracer keeps the first one, and main reports it through Err.
func (w *workload) f1() (value int, err error) {
	value = rand.IntN(1000)
	w.mu.Lock()
	defer w.mu.Unlock()
	value += rand.IntN(1000) + value

	scope := w.tracer.Performance("f1")
	defer func() {
		err = errors.CombineErrors(err, scope.End())
	}()
	_, err = w.tracer.Value(scopetrace.Here(), "f2() - 1", func() any { return w.f2() - 1 })
	return value, err
}

func (w *workload) f2() int {
	scope := w.tracer.Performance("f2")
	defer scope.End()
	_, _ = w.tracer.Value(scopetrace.Here(), "f3()", func() any { return w.f3() })
	return 2
}

func (w *workload) f3() int {
	scope := w.tracer.Performance("f3")
	defer scope.End()
	a := 5
	_, _ = w.tracer.FlatValue(scopetrace.Here(), "a", func() any { return a })
	return a
}
