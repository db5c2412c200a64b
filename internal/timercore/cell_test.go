package timercore

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewRepeatingNilHandlerPanics(t *testing.T) {
	assert.Panics(t, func() { NewRepeating(Hint{}, nil) })
	assert.Panics(t, func() { NewOneshot(Hint{}, nil) })
}

func TestRepeatingCallsEveryTime(t *testing.T) {
	var count atomic.Int32
	c := NewRepeating(Hint{}, func() { count.Add(1) })

	for i := 0; i < 5; i++ {
		c.Call()
	}
	assert.Equal(t, int32(5), count.Load())
	assert.Equal(t, 0, c.InFlight())
}

func TestOneshotAtMostOnceUnderConcurrency(t *testing.T) {
	var count atomic.Int32
	c := NewOneshot(Hint{}, func() { count.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Call()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), count.Load())
	assert.Equal(t, 0, c.InFlight())
}

func TestDeletedSkipsHandler(t *testing.T) {
	var count atomic.Int32
	c := NewRepeating(Hint{}, func() { count.Add(1) })

	require.True(t, c.MarkDeleted())
	assert.False(t, c.MarkDeleted(), "second mark must report already deleted")
	assert.True(t, c.Deleted())

	c.Call()
	assert.Equal(t, int32(0), count.Load())
	assert.Equal(t, 0, c.InFlight())
}

func TestDeletedOneshotPreservesBody(t *testing.T) {
	// 删除标记先于首次触发时，一次性闭包不得被取走后丢弃执行之外的语义：
	// 标记挡下调用，计数照常进出。
	var count atomic.Int32
	c := NewOneshot(Hint{}, func() { count.Add(1) })

	c.MarkDeleted()
	c.Call()
	assert.Equal(t, int32(0), count.Load())
}

func TestWaitIdleBoundsOnExecutingCallback(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	c := NewRepeating(Hint{}, func() {
		close(entered)
		<-release
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Call()
	}()
	<-entered

	assert.Equal(t, 1, c.InFlight())
	assert.False(t, c.WaitIdle(50*time.Millisecond), "must time out while callback executes")

	close(release)
	assert.True(t, c.WaitIdle(2*time.Second))
	assert.Equal(t, 0, c.InFlight())
	<-done
}

func TestCallLeavesCountOnPanic(t *testing.T) {
	c := NewRepeating(Hint{}, func() { panic("boom") })

	func() {
		defer func() { _ = recover() }()
		c.Call()
	}()

	assert.Equal(t, 0, c.InFlight())
}

func TestHintExecutionBudget(t *testing.T) {
	assert.Equal(t, DefaultAcceptableExecutionTime, Hint{}.ExecutionBudget())
	assert.Equal(t, DefaultAcceptableExecutionTime, Hint{Slow: true}.ExecutionBudget())
	assert.Equal(t, 5*time.Second, Hint{Slow: true, AcceptableExecutionTime: 5 * time.Second}.ExecutionBudget())
}

func BenchmarkCellCall(b *testing.B) {
	c := NewRepeating(Hint{}, func() {})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Call()
	}
}
