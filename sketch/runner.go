package sketch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sangpham88/ncore/clock"
	"github.com/sangpham88/ncore/logger"
)

const category = "SKETCH"

// VirtualPace is the shortest real time one loop iteration takes on a
// virtual clock. Virtual delays return at once, so without it a loop
// would spin a core and push millis() through its wrap in seconds.
const VirtualPace = time.Millisecond

// ErrAlreadyStarted is returned by a second call to Runner.Start.
var ErrAlreadyStarted = errors.New("sketch already started")

// Error reports a Setup or Loop failure, including a recovered panic.
type Error struct {
	Sketch string
	Phase  string // "setup" or "loop"
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("sketch %s %s: %v", e.Sketch, e.Phase, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// State is the lifecycle state of a Runner.
type State int

const (
	// StateIdle means Start has not been called.
	StateIdle State = iota
	// StateSetup means Setup is running.
	StateSetup
	// StateRunning means Loop is being called repeatedly.
	StateRunning
	// StateHalted means Setup or Loop failed. The shell keeps running.
	StateHalted
	// StateStopped means the sketch was stopped at shutdown.
	StateStopped
)

// String returns the state in lower case.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSetup:
		return "setup"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is a snapshot of a Runner.
type Status struct {
	Name   string
	State  State
	Loops  uint64
	Uptime time.Duration // Time since Setup began, zero before Start
	Err    error         // Why the sketch halted
}

// Runner owns the goroutine that executes a sketch.
//
// Start, Wait, Loops and Status are safe to call from any goroutine.
type Runner struct {
	name   string
	sketch Sketch
	board  *Board
	log    *logger.Logger
	pace   time.Duration // Minimum real time per loop; zero means none

	started atomic.Bool
	loops   atomic.Uint64
	done    chan struct{}

	mu      sync.Mutex
	state   State
	startAt time.Duration
	err     error
}

// NewRunner prepares sk to run on board. Nothing runs until Start.
func NewRunner(name string, sk Sketch, board *Board, log *logger.Logger) *Runner {
	r := &Runner{
		name:   name,
		sketch: sk,
		board:  board,
		log:    log,
		done:   make(chan struct{}),
	}
	if _, ok := board.Clock.(*clock.Virtual); ok {
		r.pace = VirtualPace
	}
	return r
}

// GO CONCEPT: A Buffered Channel as a Handshake
// ----------------------------------------------
// Start must not return until Setup has finished, yet Setup has to run on
// the sketch goroutine. The goroutine reports back through setupDone:
//
//   setupDone := make(chan error, 1)   -> room for exactly one result
//   go r.run(ctx, setupDone)           -> Setup runs over there
//   return <-setupDone                 -> wait here for its outcome
//
// A send on a channel happens-before the matching receive completes, so
// everything Setup wrote (pin modes, serial rate) is visible to the
// caller once the receive returns; no mutex is needed for that ordering.
// The buffer of one lets the goroutine send and carry on even if the
// receiver were slow to arrive.

// Start launches the sketch goroutine and blocks until Setup has
// returned. A Setup failure is returned as an *Error and the goroutine
// exits; otherwise Loop runs until ctx is cancelled or Loop fails.
func (r *Runner) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	r.mu.Lock()
	r.state = StateSetup
	r.startAt = r.board.Clock.Now()
	r.mu.Unlock()

	setupDone := make(chan error, 1)
	go r.run(ctx, setupDone)
	return <-setupDone
}

func (r *Runner) run(ctx context.Context, setupDone chan<- error) {
	defer close(r.done)

	if err := r.call("setup", r.sketch.Setup); err != nil {
		r.halt(err)
		setupDone <- err
		return
	}
	r.setState(StateRunning)
	r.log.Info(category, "setup complete", "sketch", r.name)
	setupDone <- nil

	for {
		select {
		case <-ctx.Done():
			r.setState(StateStopped)
			r.log.Info(category, "stopped", "sketch", r.name, "loops", r.loops.Load())
			return
		default:
		}
		begin := time.Now()
		if err := r.call("loop", r.sketch.Loop); err != nil {
			r.halt(err)
			return
		}
		r.loops.Add(1)
		r.wait(ctx, begin)
	}
}

// wait holds the loop until r.pace has passed since begin, or ctx ends.
func (r *Runner) wait(ctx context.Context, begin time.Time) {
	if r.pace <= 0 {
		return
	}
	rest := r.pace - time.Since(begin)
	if rest <= 0 {
		return
	}
	t := time.NewTimer(rest)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// call runs one sketch entry point, converting a panic into an error.
func (r *Runner) call(phase string, fn func(*Board) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &Error{Sketch: r.name, Phase: phase, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	if err := fn(r.board); err != nil {
		return &Error{Sketch: r.name, Phase: phase, Err: err}
	}
	return nil
}

func (r *Runner) halt(err error) {
	r.mu.Lock()
	r.state = StateHalted
	r.err = err
	r.mu.Unlock()
	r.log.Error(category, "sketch halted", "sketch", r.name, "error", err)
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Wait blocks until the sketch goroutine has exited and returns the
// error that halted it, if any. It returns at once if Start was never
// called.
func (r *Runner) Wait() error {
	if !r.started.Load() {
		return nil
	}
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// SketchName returns the name the sketch was started under.
func (r *Runner) SketchName() string {
	return r.name
}

// Loops returns the number of completed Loop calls.
func (r *Runner) Loops() uint64 {
	return r.loops.Load()
}

// Status returns a snapshot of the runner.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{
		Name:  r.name,
		State: r.state,
		Loops: r.loops.Load(),
		Err:   r.err,
	}
	if r.state != StateIdle {
		st.Uptime = r.board.Clock.Now() - r.startAt
	}
	return st
}
