package runner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comfycam/internal/comfy"
)

// fakeRunner scripts cycle outcomes and records concurrency.
type fakeRunner struct {
	mu            sync.Mutex
	calls         int
	concurrent    int
	maxConcurrent int
	errs          []error       // per-call results, nil beyond the slice
	gate          chan struct{} // when set, cycles block until the gate closes
}

func (f *fakeRunner) RunCycle(ctx context.Context) error {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.concurrent++
	if f.concurrent > f.maxConcurrent {
		f.maxConcurrent = f.concurrent
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	f.concurrent--
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	f.mu.Unlock()
	return err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestController(r CycleRunner) *Controller {
	return NewController(r, WithPace(time.Millisecond))
}

func TestStartSingleRunOnce(t *testing.T) {
	f := &fakeRunner{}
	c := newTestController(f)

	assert.True(t, c.StartSingleRun(context.Background()))
	c.Wait()

	assert.Equal(t, 1, f.callCount())
	snap := c.Snapshot()
	assert.False(t, snap.Working)
	assert.False(t, snap.LoopRequested)
	assert.Equal(t, 1, snap.Cycles)
}

func TestStartSingleRunRejectsReentry(t *testing.T) {
	f := &fakeRunner{gate: make(chan struct{})}
	c := newTestController(f)

	require.True(t, c.StartSingleRun(context.Background()))
	// Second call while working must not spawn a second cycle.
	assert.False(t, c.StartSingleRun(context.Background()))

	close(f.gate)
	c.Wait()

	assert.Equal(t, 1, f.callCount())
	assert.Equal(t, 1, f.maxConcurrent)
}

func TestLoopRunsUntilStopped(t *testing.T) {
	f := &fakeRunner{}
	c := newTestController(f)

	c.StartLoop(context.Background())
	require.Eventually(t, func() bool {
		return f.callCount() >= 3
	}, 2*time.Second, time.Millisecond)

	c.StopLoop()
	c.Wait()

	after := f.callCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, f.callCount(), "no cycle may start after the loop stopped")
	assert.Equal(t, 1, f.maxConcurrent)
	assert.False(t, c.Snapshot().Working)
}

func TestStopDuringCycleRunsItToCompletion(t *testing.T) {
	f := &fakeRunner{gate: make(chan struct{})}
	c := newTestController(f)

	c.StartLoop(context.Background())
	require.Eventually(t, func() bool {
		return f.callCount() == 1
	}, time.Second, time.Millisecond)

	// Stop while the first cycle is in flight; it completes, nothing follows.
	c.StopLoop()
	close(f.gate)
	c.Wait()

	assert.Equal(t, 1, f.callCount())
}

func TestStartLoopWhileWorkingFoldsIntoRun(t *testing.T) {
	f := &fakeRunner{gate: make(chan struct{})}
	c := newTestController(f)

	require.True(t, c.StartSingleRun(context.Background()))

	// The operator requests a loop while the single cycle is still running.
	// The completed cycle re-checks the flag and keeps going.
	c.StartLoop(context.Background())
	assert.True(t, c.Snapshot().Working)

	gate := f.gate
	f.mu.Lock()
	f.gate = nil
	f.mu.Unlock()
	close(gate)

	require.Eventually(t, func() bool {
		return f.callCount() >= 2
	}, 2*time.Second, time.Millisecond)

	c.StopLoop()
	c.Wait()
	assert.Equal(t, 1, f.maxConcurrent)
}

func TestStartLoopDuringSingleRunExitIsNeverDropped(t *testing.T) {
	// Hammers the single-run/loop handoff: StartLoop arriving while the run
	// goroutine is deciding to exit must either fold into it or spawn a
	// fresh goroutine. A loop request must never be left set with nothing
	// scheduled to serve it.
	for i := 0; i < 200; i++ {
		f := &fakeRunner{}
		c := NewController(f, WithPace(time.Microsecond))

		require.True(t, c.StartSingleRun(context.Background()))
		c.StartLoop(context.Background())

		require.Eventually(t, func() bool {
			return f.callCount() >= 2
		}, 2*time.Second, 50*time.Microsecond, "loop request dropped on iteration %d", i)

		c.StopLoop()
		c.Wait()

		snap := c.Snapshot()
		assert.False(t, snap.Working)
		assert.False(t, snap.LoopRequested)
		assert.Equal(t, 1, f.maxConcurrent)
	}
}

func TestUnreachableServerStopsLoop(t *testing.T) {
	f := &fakeRunner{errs: []error{
		fmt.Errorf("upload: %w", comfy.ErrServerUnreachable),
	}}
	c := newTestController(f)

	c.StartLoop(context.Background())
	c.Wait()

	// The failing cycle cleared the loop request even though it was set
	// before the cycle began.
	assert.Equal(t, 1, f.callCount())
	snap := c.Snapshot()
	assert.False(t, snap.LoopRequested)
	assert.False(t, snap.Working)
}

func TestOtherErrorsKeepLooping(t *testing.T) {
	f := &fakeRunner{errs: []error{
		fmt.Errorf("some transient failure"),
	}}
	c := newTestController(f)

	c.StartLoop(context.Background())
	require.Eventually(t, func() bool {
		return f.callCount() >= 2
	}, 2*time.Second, time.Millisecond)

	c.StopLoop()
	c.Wait()
	assert.GreaterOrEqual(t, f.callCount(), 2)
}

func TestContextCancelStopsLoop(t *testing.T) {
	f := &fakeRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	c := newTestController(f)

	c.StartLoop(ctx)
	require.Eventually(t, func() bool {
		return f.callCount() >= 1
	}, time.Second, time.Millisecond)

	cancel()
	c.Wait()

	// Cancellation leaves no dangling loop request behind.
	snap := c.Snapshot()
	assert.False(t, snap.Working)
	assert.False(t, snap.LoopRequested)
}
