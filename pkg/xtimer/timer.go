package xtimer

import (
	"sync"
	"time"

	"github.com/omeyang/xtimer/internal/platform"
	"github.com/omeyang/xtimer/internal/timercore"
)

// Timer 是调用方可见的定时器句柄，拥有回调单元与原生定时器资源。
// 用毕必须调用 [Timer.Close]。
type Timer struct {
	q    *TimerQueue
	tok  timercore.Token
	cell *timercore.Cell

	mu     sync.Mutex
	handle platform.Handle
	closed bool
}

// ChangePeriod 重设定时器的到期时间与周期。
// due 或 period 为负返回 [ErrNegativeDuration]；
// 定时器已关闭返回 [ErrTimerClosed]。
//
// 经 [TimerQueue.ScheduleOneshot] 创建的定时器即使被重臂，
// 其回调也不会再次执行（至多一次语义优先）。
func (t *Timer) ChangePeriod(due, period time.Duration) error {
	if err := validateDurations(due, period); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTimerClosed
	}
	if err := t.q.backend.Rearm(t.handle, due, period); err != nil {
		return newOsError("change timer period", err)
	}
	return nil
}

// Close 关闭定时器并执行拆除同步协议。幂等。
//
// Close 可能阻塞调用方，上界为回调声明的可接受执行时间：返回后保证
// 该定时器的回调不会再开始任何新的执行，在途执行也已退出。
// 原生层面的清理是 best-effort 的（失败只记日志），内存安全保证无条件。
func (t *Timer) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	handle := t.handle
	t.mu.Unlock()

	t.q.teardown(t.tok, handle)
	return nil
}

// InFlight 返回该定时器回调当前并发执行中的调用数快照，仅用于观测。
func (t *Timer) InFlight() int {
	return t.cell.InFlight()
}
