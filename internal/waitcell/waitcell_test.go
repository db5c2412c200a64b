package waitcell

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWaitImmediateWhenPredicateHolds(t *testing.T) {
	s := New(42)

	v, ok := s.Wait(func(n int) bool { return n == 42 }, time.Second)
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestSetWakesWaiter(t *testing.T) {
	s := New(0)

	done := make(chan struct{})
	var got int
	var ok bool
	go func() {
		defer close(done)
		got, ok = s.Wait(func(n int) bool { return n == 3 }, 2*time.Second)
	}()

	// 等待者大概率已进入阻塞，Set 必须能唤醒它。
	time.Sleep(20 * time.Millisecond)
	s.Set(3)

	<-done
	require.True(t, ok)
	assert.Equal(t, 3, got)
}

func TestWaitTimeout(t *testing.T) {
	s := New(0)

	start := time.Now()
	v, ok := s.Wait(func(n int) bool { return n == 1 }, 50*time.Millisecond)
	assert.False(t, ok)
	assert.Equal(t, 0, v)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitZeroTimeoutIsInstantCheck(t *testing.T) {
	s := New(0)

	_, ok := s.Wait(func(n int) bool { return n == 1 }, 0)
	assert.False(t, ok)

	s.Set(1)
	_, ok = s.Wait(func(n int) bool { return n == 1 }, 0)
	assert.True(t, ok)
}

func TestUpdateReturnsNewValue(t *testing.T) {
	s := New(10)

	got := s.Update(func(n int) int { return n + 5 })
	assert.Equal(t, 15, got)
	assert.Equal(t, 15, s.Get())
}

func TestConcurrentUpdates(t *testing.T) {
	const n = 64
	s := New(0)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(func(v int) int { return v + 1 })
		}()
	}

	v, ok := s.Wait(func(v int) bool { return v == n }, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, n, v)
	wg.Wait()
}

func TestWaitSeesIntermediateStates(t *testing.T) {
	s := New(0)

	go func() {
		for i := 1; i <= 5; i++ {
			s.Set(i)
			time.Sleep(5 * time.Millisecond)
		}
	}()

	_, ok := s.Wait(func(n int) bool { return n >= 5 }, 2*time.Second)
	assert.True(t, ok)
}
