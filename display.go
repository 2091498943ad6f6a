package scopetrace

import "github.com/cockroachdb/errors"

// Message prints msg indented to the caller's current depth, inside a hierarchy scope for site.
// Nothing is printed while tracing is inactive.
func (t *Tracer) Message(site CallSite, msg string) error {
	scope := t.BeginHierarchy(site)
	err := t.displayLine(scope.id, func(indent, prefix string) string {
		return indent + prefix + ":" + msg
	})
	return errors.CombineErrors(err, scope.End())
}

// Value evaluates expr inside a hierarchy scope for site. A "Processing" line is printed before
// eval runs and the result after, so anything eval traces shows up nested between the two. The
// value is returned for inline use.
func (t *Tracer) Value(site CallSite, expr string, eval func() any) (any, error) {
	scope := t.BeginHierarchy(site)
	err := t.displayLine(scope.id, func(indent, prefix string) string {
		return processingLine(indent, prefix, site, expr)
	})

	value := eval()

	err = errors.CombineErrors(err, t.displayLine(scope.id, func(indent, prefix string) string {
		return resultLine(indent, prefix, site, expr, value)
	}))
	return value, errors.CombineErrors(err, scope.End())
}

// FlatValue evaluates expr and prints only its result. Display is muted while eval runs, for
// every goroutine, so nested traces do not clutter the line. The result itself is printed unless
// this call is nested inside another FlatValue on the same goroutine.
func (t *Tracer) FlatValue(site CallSite, expr string, eval func() any) (any, error) {
	scope := t.BeginHierarchy(site)

	t.mu.Lock()
	if t.flat == nil {
		t.flat = map[ThreadID]int{}
	}
	t.flat[scope.id]++
	t.flatTotal++
	t.mu.Unlock()

	value := eval()

	t.mu.Lock()
	t.flatTotal--
	nested := t.flat[scope.id] > 1
	if nested {
		t.flat[scope.id]--
	} else {
		delete(t.flat, scope.id)
	}
	var err error
	if t.active && !nested {
		line := resultLine(t.depth.indent(scope.id), t.prefixLocked(scope.id), site, expr, value)
		err = t.emitLocked(line, false)
	}
	t.mu.Unlock()

	return value, errors.CombineErrors(err, scope.End())
}

// displayLine emits one hierarchy line built under the lock, unless display is off or muted.
func (t *Tracer) displayLine(id ThreadID, build func(indent, prefix string) string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active || t.flatTotal > 0 {
		return nil
	}
	return t.emitLocked(build(t.depth.indent(id), t.prefixLocked(id)), false)
}
