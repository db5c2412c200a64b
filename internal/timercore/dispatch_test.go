package timercore

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingObserver 记录分发层的观测事件，供断言使用。
type countingObserver struct {
	fired   atomic.Int32
	slow    atomic.Int32
	dropped atomic.Int32
}

func (o *countingObserver) Fired(slow bool, _ time.Duration) {
	o.fired.Add(1)
	if slow {
		o.slow.Add(1)
	}
}

func (o *countingObserver) Dropped() { o.dropped.Add(1) }

// concurrencyTracker 记录观察到的最大并发度。
type concurrencyTracker struct {
	cur atomic.Int32
	max atomic.Int32
}

func (c *concurrencyTracker) enter() {
	n := c.cur.Add(1)
	for {
		m := c.max.Load()
		if n <= m || c.max.CompareAndSwap(m, n) {
			return
		}
	}
}

func (c *concurrencyTracker) leave() { c.cur.Add(-1) }

func TestDispatchUnknownTokenIgnored(t *testing.T) {
	reg := NewRegistry()
	d := NewDispatcher(reg, 0, nil, nil)
	defer d.Stop()

	assert.NoError(t, d.Dispatch(Token(999)))
}

func TestQuickDispatchSerialized(t *testing.T) {
	reg := NewRegistry()
	d := NewDispatcher(reg, 0, nil, nil)
	defer d.Stop()

	var tracker concurrencyTracker
	var count atomic.Int32
	handler := func() {
		tracker.enter()
		time.Sleep(5 * time.Millisecond)
		count.Add(1)
		tracker.leave()
	}

	tok1 := reg.Register(NewRepeating(Hint{}, handler))
	tok2 := reg.Register(NewRepeating(Hint{}, handler))

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Dispatch(tok1))
		require.NoError(t, d.Dispatch(tok2))
	}

	require.Eventually(t, func() bool { return count.Load() == 10 },
		3*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), tracker.max.Load(),
		"quick callbacks must share one serialized worker")
}

func TestSlowDispatchOverlaps(t *testing.T) {
	reg := NewRegistry()
	d := NewDispatcher(reg, 0, nil, nil)
	defer d.Stop()

	var tracker concurrencyTracker
	barrier := make(chan struct{})
	tok := reg.Register(NewRepeating(Hint{Slow: true}, func() {
		tracker.enter()
		<-barrier
		tracker.leave()
	}))

	require.NoError(t, d.Dispatch(tok))
	require.NoError(t, d.Dispatch(tok))

	require.Eventually(t, func() bool { return tracker.cur.Load() == 2 },
		2*time.Second, 5*time.Millisecond,
		"two slow invocations of the same timer must overlap")
	close(barrier)

	require.Eventually(t, func() bool { return tracker.cur.Load() == 0 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), tracker.max.Load())
}

func TestDispatchAfterStop(t *testing.T) {
	reg := NewRegistry()
	obs := &countingObserver{}
	d := NewDispatcher(reg, 0, nil, obs)

	quickTok := reg.Register(NewRepeating(Hint{}, func() {}))
	slowTok := reg.Register(NewRepeating(Hint{Slow: true}, func() {}))

	d.Stop()
	d.Stop() // 幂等

	assert.ErrorIs(t, d.Dispatch(quickTok), ErrSynchronizationBroken)
	assert.ErrorIs(t, d.Dispatch(slowTok), ErrSynchronizationBroken)
	assert.Equal(t, int32(2), obs.dropped.Load())
}

func TestInvokeRecoversCallbackPanic(t *testing.T) {
	reg := NewRegistry()
	d := NewDispatcher(reg, 0, nil, nil)
	defer d.Stop()

	tok := reg.Register(NewRepeating(Hint{}, func() { panic("boom") }))
	cell, _ := reg.Lookup(tok)

	assert.NotPanics(t, func() { d.Invoke(tok) })
	assert.Equal(t, 0, cell.InFlight())
}

func TestObserverReceivesFiredEvents(t *testing.T) {
	reg := NewRegistry()
	obs := &countingObserver{}
	d := NewDispatcher(reg, 0, nil, obs)
	defer d.Stop()

	quickTok := reg.Register(NewRepeating(Hint{}, func() {}))
	slowTok := reg.Register(NewRepeating(Hint{Slow: true}, func() {}))

	require.NoError(t, d.Dispatch(quickTok))
	require.NoError(t, d.Dispatch(slowTok))

	require.Eventually(t, func() bool { return obs.fired.Load() == 2 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), obs.slow.Load())
}

func TestStopWaitsForInflightSlowCallback(t *testing.T) {
	reg := NewRegistry()
	d := NewDispatcher(reg, 0, nil, nil)

	entered := make(chan struct{})
	var finished atomic.Bool
	tok := reg.Register(NewRepeating(Hint{Slow: true}, func() {
		close(entered)
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
	}))

	require.NoError(t, d.Dispatch(tok))
	<-entered

	d.Stop()
	assert.True(t, finished.Load(), "Stop must wait for in-flight slow goroutines")
}
