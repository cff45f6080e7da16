// Package clock provides the process-wide time source for ncore.
//
// Every component that needs a timestamp or a delay reads it from a
// single Clock chosen at startup: the logger stamps records with it and
// sketch code derives millis() and delay() from it. Two implementations
// exist:
//
//	Wall     real monotonic time since the clock was created
//	Virtual  a counter that only moves when advanced or slept on
//
// The policy is fixed for the life of the process.
package clock

import (
	"sync"
	"time"
)

// Clock is a monotonic time source.
type Clock interface {
	// Now returns the time elapsed since the clock started. It never
	// goes backwards.
	Now() time.Duration

	// Sleep suspends the caller for d. A virtual clock advances instead
	// of blocking.
	Sleep(d time.Duration)
}

// Wall passes real time through. It uses the monotonic reading carried
// by time.Time, so wall clock adjustments do not affect it.
type Wall struct {
	start time.Time
}

// NewWall creates a wall clock starting now.
func NewWall() *Wall {
	return &Wall{start: time.Now()}
}

// Now returns the time elapsed since NewWall.
func (w *Wall) Now() time.Duration {
	return time.Since(w.start)
}

// Sleep blocks for d.
func (w *Wall) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// Virtual is an advanceable clock. It is safe for concurrent use.
type Virtual struct {
	mu  sync.Mutex
	now time.Duration
}

// NewVirtual creates a virtual clock at zero.
func NewVirtual() *Virtual {
	return &Virtual{}
}

// Now returns the current virtual time.
func (v *Virtual) Now() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Advance moves the clock forward by d. Negative values are ignored.
func (v *Virtual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	v.mu.Lock()
	v.now += d
	v.mu.Unlock()
}

// Sleep advances the clock by d without blocking.
func (v *Virtual) Sleep(d time.Duration) {
	v.Advance(d)
}

// Millis returns the clock reading in milliseconds, wrapping at 2^32 the
// way the microcontroller counter does.
func Millis(c Clock) uint32 {
	return uint32(c.Now() / time.Millisecond)
}

// Micros returns the clock reading in microseconds, wrapping at 2^32.
func Micros(c Clock) uint32 {
	return uint32(c.Now() / time.Microsecond)
}

// Mode names a clock policy in configuration.
type Mode string

const (
	// ModeWall selects Wall.
	ModeWall Mode = "wall"
	// ModeVirtual selects Virtual.
	ModeVirtual Mode = "virtual"
)

// New returns a clock for the given mode. An empty mode means wall time.
func New(mode Mode) (Clock, bool) {
	switch mode {
	case ModeWall, "":
		return NewWall(), true
	case ModeVirtual:
		return NewVirtual(), true
	default:
		return nil, false
	}
}
