package engine

import "time"

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the
	// timer was still pending.
	Stop() bool
}

// Clock schedules deferred callbacks. The engine uses it for frame
// coalescing; tests substitute a manual clock to drive frames
// deterministically.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

type systemTimer struct{ t *time.Timer }

func (t systemTimer) Stop() bool { return t.t.Stop() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return systemTimer{time.AfterFunc(d, f)}
}

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }
