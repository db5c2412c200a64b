package xtimer

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omeyang/xtimer/internal/platform"
	"github.com/omeyang/xtimer/internal/timercore"
	"github.com/omeyang/xtimer/internal/waitcell"
)

// handoffTimeout 是 fire-oneshot 回调等待句柄交接槽就位的上界。
// 槽由调度调用在 OS 接受创建后立即填充，正常情况下等待接近零；
// 超时意味着同步已破坏。
const handoffTimeout = 10 * time.Second

// TimerQueue 拥有一个平台后端实例与一个分发层，是定时器句柄的工厂。
// 所有方法并发安全。
type TimerQueue struct {
	name   string
	logger *slog.Logger

	reg     *timercore.Registry
	disp    *timercore.Dispatcher
	backend platform.Backend

	closed    atomic.Bool
	isDefault bool
}

// New 创建一个拥有独立后端与分发层的定时器队列。
// 队列用毕应调用 [TimerQueue.Close]（先关闭其全部定时器）；
// 只需要进程级共享队列时用 [Default]。
func New(opts ...Option) (*TimerQueue, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	reg := timercore.NewRegistry()
	disp := timercore.NewDispatcher(reg, o.quickQueueSize, o.logger, o.observer)
	backend, err := platform.New(disp, o.logger)
	if err != nil {
		disp.Stop()
		return nil, newOsError("create timer queue", err)
	}
	return &TimerQueue{
		name:    o.name,
		logger:  o.logger,
		reg:     reg,
		disp:    disp,
		backend: backend,
	}, nil
}

// defaultQueue 懒构造进程级单例，构造恰好一次，进程生命周期内不拆除。
// 没有显式拆除是有意为之，不是泄漏。
var defaultQueue = sync.OnceValue(func() *TimerQueue {
	q, err := New(WithName("default"))
	if err != nil {
		panic(fmt.Sprintf("xtimer: create default timer queue: %v", err))
	}
	q.isDefault = true
	return q
})

// Default 返回进程级默认定时器队列。
func Default() *TimerQueue {
	return defaultQueue()
}

// ScheduleTimer 调度一个定时器：首次在 due 后触发；period == 0 为一次性，
// period > 0 之后每 period 触发一次。handler 可被多次调用，须自行保证
// 并发安全（执行超过周期时相邻触发可能重叠）。
// due 或 period 为负返回 [ErrNegativeDuration]。handler 为 nil 会 panic。
func (q *TimerQueue) ScheduleTimer(due, period time.Duration, hint CallbackHint, handler func()) (*Timer, error) {
	if err := validateDurations(due, period); err != nil {
		return nil, err
	}
	// period == 0 的一次性定时器仍用可重复单元：ChangePeriod 可以重臂它。
	return q.schedule(due, period, timercore.NewRepeating(hint.h, handler))
}

// ScheduleOneshot 调度一个一次性定时器，handler 至多执行一次，
// 即使并发进入。在到期前关闭句柄则一次也不执行。
func (q *TimerQueue) ScheduleOneshot(due time.Duration, hint CallbackHint, handler func()) (*Timer, error) {
	if err := validateDurations(due, 0); err != nil {
		return nil, err
	}
	return q.schedule(due, 0, timercore.NewOneshot(hint.h, handler))
}

// FireOneshot 调度一个不暴露句柄的一次性定时器。OS 接受调度后即返回；
// handler 执行完毕后，库在独立 goroutine 上自行拆除底层定时器——
// 从不在触发线程上（原生 API 禁止在定时器自己的回调里销毁它）。
// handler 必须与进程同生命周期（不引用会提前失效的资源）。
func (q *TimerQueue) FireOneshot(due time.Duration, hint CallbackHint, handler func()) error {
	if handler == nil {
		panic("xtimer: nil handler")
	}
	if err := validateDurations(due, 0); err != nil {
		return err
	}
	if q.closed.Load() {
		return ErrQueueClosed
	}

	// 交接槽：回调需要引用将要拥有它的句柄——一个结构性环。
	// 两阶段发布解开它：先建单元，OS 接受创建后把 (句柄, 令牌) 写进槽，
	// 回调先等槽就位再自拆，不需要任何反向指针。
	type firing struct {
		handle platform.Handle
		tok    timercore.Token
		ok     bool
	}
	slot := waitcell.New(firing{})

	wrapper := func() {
		handler()
		// due 接近零时回调可能先于槽填充开始执行，必须先等槽。
		v, ok := slot.Wait(func(f firing) bool { return f.ok }, handoffTimeout)
		if !ok {
			q.logger.Error("xtimer: fire-oneshot handle handoff never completed",
				"queue", q.name, "error", ErrSynchronizationBroken)
			fatalHook("fire-oneshot handle handoff never completed")
			return
		}
		go q.teardown(v.tok, v.handle)
	}

	cell := timercore.NewOneshot(hint.h, wrapper)
	tok := q.reg.Register(cell)
	handle, err := q.backend.Create(due, 0, tok, cell.Hint())
	if err != nil {
		q.reg.Remove(tok)
		return newOsError("create timer", err)
	}
	slot.Set(firing{handle: handle, tok: tok, ok: true})
	return nil
}

// Close 关闭一个显式创建的队列：停止后端与分发 worker。
// 调用方应先关闭经由本队列调度的全部定时器。幂等：重复关闭返回
// [ErrQueueClosed]。默认队列不可关闭，返回 [ErrDefaultQueue]。
func (q *TimerQueue) Close() error {
	if q.isDefault {
		return ErrDefaultQueue
	}
	if !q.closed.CompareAndSwap(false, true) {
		return ErrQueueClosed
	}
	err := q.backend.Close()
	q.disp.Stop()
	if err != nil {
		return newOsError("close timer queue", err)
	}
	return nil
}

// schedule 执行两段式创建：先注册回调单元（通知上下文自此有合法目标），
// OS 接受创建后才把原生句柄交给定时器句柄；失败则丢弃单元，不留资源。
func (q *TimerQueue) schedule(due, period time.Duration, cell *timercore.Cell) (*Timer, error) {
	if q.closed.Load() {
		return nil, ErrQueueClosed
	}
	tok := q.reg.Register(cell)
	handle, err := q.backend.Create(due, period, tok, cell.Hint())
	if err != nil {
		q.reg.Remove(tok)
		return nil, newOsError("create timer", err)
	}
	return &Timer{q: q, tok: tok, cell: cell, handle: handle}, nil
}

// teardown 执行拆除同步协议，严格线性：
// 标记删除 → best-effort 解除武装 → 有界等待 in-flight 归零 →
// 释放原生句柄 → 从注册表移除单元。
// 解除武装失败只记日志照常推进：首要目标是不在可能的在途执行期间
// 释放内存，而不是避免泄漏一个仍武装的资源。
func (q *TimerQueue) teardown(tok timercore.Token, handle platform.Handle) {
	cell, ok := q.reg.Lookup(tok)
	if !ok {
		return
	}
	cell.MarkDeleted()

	if err := q.backend.Cancel(handle); err != nil {
		q.logger.Warn("xtimer: best-effort disarm failed",
			"queue", q.name, "error", newOsError("cancel timer", err))
	}

	if !cell.WaitIdle(cell.Hint().ExecutionBudget()) {
		// 不可恢复：用户代码超出声明的可接受执行时间仍在执行，
		// 而宿主内存即将释放。没有回到 Armed 的转移。
		q.logger.Error("xtimer: wait for executing callback timed out during teardown",
			"queue", q.name, "budget", cell.Hint().ExecutionBudget())
		fatalHook("timer callback still executing past its acceptable execution time during teardown")
		return
	}

	if err := q.backend.Release(handle); err != nil {
		q.logger.Warn("xtimer: release native timer failed, resource may leak",
			"queue", q.name, "error", newOsError("release timer", err))
	}
	q.reg.Remove(tok)
}

func validateDurations(due, period time.Duration) error {
	if due < 0 || period < 0 {
		return ErrNegativeDuration
	}
	return nil
}
