package scopetrace

import (
	"time"

	"github.com/petermattis/goid"
)

// ThreadID identifies the goroutine a scope was opened on.
type ThreadID int64

// Clock supplies timestamps. Now must carry a monotonic reading since it is used for every
// measured delta; Wall is only used to stamp output lines.
type Clock interface {
	Now() time.Time
	Wall() time.Time
}

// Identity reports which goroutine is calling.
type Identity interface {
	Current() ThreadID
}

// SystemClock reads the process clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Wall strips the monotonic reading so the value behaves as a plain wall-clock instant.
func (SystemClock) Wall() time.Time { return time.Now().Round(0) }

// GoroutineIdentity keys depth by the runtime goroutine id.
type GoroutineIdentity struct{}

func (GoroutineIdentity) Current() ThreadID { return ThreadID(goid.Get()) }
