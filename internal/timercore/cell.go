package timercore

import (
	"sync/atomic"
	"time"

	"github.com/omeyang/xtimer/internal/waitcell"
)

// Cell 是一个回调单元：用户闭包 + 分发提示 + 删除标记 + in-flight 计数。
//
// 不变量：
//   - deleted 置位后不再有新调用进入回调体（Call 仍会进出计数，但跳过闭包）
//   - 单元只有在先观察到 deleted=true、再观察到 in-flight==0 之后才可释放
type Cell struct {
	hint Hint

	// repeat 与 once 互斥：period > 0 的定时器持有 repeat，
	// 一次性定时器持有 once，由 Swap 原子取走保证至多执行一次。
	repeat func()
	once   atomic.Pointer[func()]

	deleted  atomic.Bool
	inflight *waitcell.State[int]
}

// NewRepeating 创建可重复触发的回调单元。handler 不得为 nil。
func NewRepeating(hint Hint, handler func()) *Cell {
	if handler == nil {
		panic("xtimer: nil handler")
	}
	return &Cell{hint: hint, repeat: handler, inflight: waitcell.New(0)}
}

// NewOneshot 创建至多执行一次的回调单元。handler 不得为 nil。
func NewOneshot(hint Hint, handler func()) *Cell {
	if handler == nil {
		panic("xtimer: nil handler")
	}
	c := &Cell{hint: hint, inflight: waitcell.New(0)}
	c.once.Store(&handler)
	return c
}

// Hint 返回回调的分发提示。
func (c *Cell) Hint() Hint { return c.hint }

// Call 执行一次回调调用：先进入 in-flight 计数，未删除时调用闭包，
// 任何退出路径（包括闭包 panic）都会离开计数。
//
// 一次性闭包通过 Swap 取走，即使并发进入也至多执行一次。
func (c *Cell) Call() {
	c.inflight.Update(func(n int) int { return n + 1 })
	defer c.inflight.Update(func(n int) int { return n - 1 })

	if c.deleted.Load() {
		return
	}
	if c.repeat != nil {
		c.repeat()
		return
	}
	if fn := c.once.Swap(nil); fn != nil {
		(*fn)()
	}
}

// MarkDeleted 置位删除标记。首次置位返回 true。
// 标记对所有分发 goroutine 立即可见，调用方必须在 WaitIdle 之前调用。
func (c *Cell) MarkDeleted() bool {
	return c.deleted.CompareAndSwap(false, true)
}

// Deleted 报告删除标记是否已置位。
func (c *Cell) Deleted() bool { return c.deleted.Load() }

// WaitIdle 有界等待 in-flight 计数归零。
// 超时返回 false；超时只报告、不重试，调用方必须视为致命条件——
// 继续释放内存意味着用户代码可能仍在其中执行。
func (c *Cell) WaitIdle(timeout time.Duration) bool {
	_, ok := c.inflight.Wait(func(n int) bool { return n == 0 }, timeout)
	return ok
}

// InFlight 返回当前并发执行中的调用数快照。
func (c *Cell) InFlight() int { return c.inflight.Get() }
