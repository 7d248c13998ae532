package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"comfycam/internal/comfy"
	"comfycam/internal/logging"
)

// DefaultPace is the delay between cycles in loop mode.
const DefaultPace = 200 * time.Millisecond

// CycleRunner runs one end-to-end cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// State is a read-only snapshot of the controller.
type State struct {
	// Working is true while a cycle is executing.
	Working bool
	// LoopRequested is true while the operator wants cycles to repeat.
	LoopRequested bool
	// Cycles counts completed cycles since startup.
	Cycles int
}

// Controller is the run state machine. It guarantees at most one cycle
// goroutine at any time and race-free stop requests: working and
// loopRequested are mutated only under the mutex, through its methods.
//
// Stopping is cooperative. An in-flight cycle always runs to completion; a
// stop request takes effect at the next loop boundary.
type Controller struct {
	mu            sync.Mutex
	working       bool
	loopRequested bool
	cycles        int

	runner CycleRunner
	pace   time.Duration
	log    *logging.Logger
	wg     sync.WaitGroup
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPace overrides the inter-cycle pacing delay.
func WithPace(pace time.Duration) ControllerOption {
	return func(c *Controller) {
		c.pace = pace
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(log *logging.Logger) ControllerOption {
	return func(c *Controller) {
		c.log = log.WithComponent("controller")
	}
}

// NewController creates a Controller driving the given cycle runner.
func NewController(runner CycleRunner, opts ...ControllerOption) *Controller {
	c := &Controller{
		runner: runner,
		pace:   DefaultPace,
		log:    logging.Default().WithComponent("controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartSingleRun starts one cycle on a background goroutine. It reports
// whether a run was started; a second call while working is a no-op. If the
// operator requests a loop while the single cycle is in flight, the cycle's
// completion check picks the flag up and keeps going.
func (c *Controller) StartSingleRun(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.working {
		return false
	}
	c.working = true
	c.spawn(ctx)
	return true
}

// StartLoop requests continuous cycles. If no cycle is running it starts the
// background goroutine; if one is already in flight, only the flag is set
// and the running goroutine continues looping once its cycle completes.
func (c *Controller) StartLoop(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loopRequested = true
	if c.working {
		return
	}
	c.working = true
	c.spawn(ctx)
}

// StopLoop clears the loop request. The active cycle, if any, runs to
// completion; no further cycle starts after it.
func (c *Controller) StopLoop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loopRequested = false
}

// Snapshot returns the current run state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Working:       c.working,
		LoopRequested: c.loopRequested,
		Cycles:        c.cycles,
	}
}

// Wait blocks until the background goroutine, if any, has exited.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// spawn starts the background run goroutine. Callers hold the mutex.
func (c *Controller) spawn(ctx context.Context) {
	c.wg.Add(1)
	go c.run(ctx)
}

// run executes cycles until the loop flag is clear. Every completed cycle —
// single or looped — re-checks loopRequested before starting a successor, so
// a loop requested during a single run takes effect when that cycle ends.
//
// The exit decision and the working = false write happen in one critical
// section: once another goroutine observes working == false, this one has
// already committed to running no further cycle, so a StartLoop interleaved
// with the exit either folds into a still-looping run or spawns fresh —
// never lands on a flag nobody will ever read.
func (c *Controller) run(ctx context.Context) {
	defer c.wg.Done()

	for {
		err := c.runner.RunCycle(ctx)

		c.mu.Lock()
		c.cycles++
		if err != nil && errors.Is(err, comfy.ErrServerUnreachable) {
			// Looping against an absent server would spin.
			c.loopRequested = false
			c.log.Warn("loop stopped: server unreachable")
		}
		if ctx.Err() != nil {
			c.loopRequested = false
		}
		again := c.loopRequested
		if !again {
			c.working = false
		}
		c.mu.Unlock()

		if !again {
			return
		}

		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.loopRequested = false
			c.working = false
			c.mu.Unlock()
			return
		case <-time.After(c.pace):
		}
	}
}
