package timercore

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultQuickQueueSize = 1024

// Observer 接收分发层的观测事件，由上层注入（默认空实现）。
type Observer interface {
	// Fired 在一次回调调用结束后上报（含被删除标记挡下的空转调用）。
	Fired(slow bool, elapsed time.Duration)
	// Dropped 在分发层已停止、到期通知被丢弃时上报。
	Dropped()
}

// NopObserver 是 Observer 的空实现。
type NopObserver struct{}

func (NopObserver) Fired(bool, time.Duration) {}
func (NopObserver) Dropped()                  {}

// Dispatcher 把到期令牌路由到执行上下文：
//   - Quick 回调进入缓冲通道，由单个共享 worker 串行执行
//   - Slow 回调每次触发独占一个 goroutine，允许同一定时器的触发重叠
//
// 通知上下文（epoll poller、OS 线程池）只做令牌查找和路由决策，
// 用户代码从不在通知上下文本身执行——Windows 后端例外，
// 它通过 [Dispatcher.Invoke] 在 OS 按提示标志挑选的线程池线程上内联执行。
type Dispatcher struct {
	reg    *Registry
	logger *slog.Logger
	obs    Observer

	quick    chan Token
	stopped  chan struct{}
	stopOnce sync.Once
	group    errgroup.Group
}

// NewDispatcher 创建分发层并启动 Quick worker。
// quickSize <= 0 时使用默认队列容量。logger、obs 为 nil 时使用默认值。
func NewDispatcher(reg *Registry, quickSize int, logger *slog.Logger, obs Observer) *Dispatcher {
	if quickSize <= 0 {
		quickSize = defaultQuickQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	if obs == nil {
		obs = NopObserver{}
	}
	d := &Dispatcher{
		reg:     reg,
		logger:  logger,
		obs:     obs,
		quick:   make(chan Token, quickSize),
		stopped: make(chan struct{}),
	}
	d.group.Go(func() error {
		d.runQuick()
		return nil
	})
	return d
}

// Dispatch 路由一个到期令牌。已拆除定时器的迟到通知静默落空。
// 分发层已停止时返回 [ErrSynchronizationBroken]。
//
// Quick 通道满时发送阻塞而非丢弃：串行化语义下积压由回调耗时决定，
// 丢弃会破坏触发计数的可预测性。
func (d *Dispatcher) Dispatch(tok Token) error {
	cell, ok := d.reg.Lookup(tok)
	if !ok {
		d.logger.Debug("xtimer: dispatch for removed timer ignored", "token", uint64(tok))
		return nil
	}

	if cell.Hint().Slow {
		select {
		case <-d.stopped:
			d.obs.Dropped()
			return ErrSynchronizationBroken
		default:
		}
		d.group.Go(func() error {
			d.Invoke(tok)
			return nil
		})
		return nil
	}

	select {
	case d.quick <- tok:
		return nil
	case <-d.stopped:
		d.obs.Dropped()
		return ErrSynchronizationBroken
	}
}

// Invoke 在当前 goroutine 上执行一次回调调用，带存在性检查与 panic 恢复。
// 供 Quick worker、Slow goroutine 以及线程池型后端的内联路径共用。
func (d *Dispatcher) Invoke(tok Token) {
	cell, ok := d.reg.Lookup(tok)
	if !ok {
		d.logger.Debug("xtimer: invoke for removed timer ignored", "token", uint64(tok))
		return
	}
	start := time.Now()
	defer func() {
		// 回调 panic 不能击穿分发 worker，否则整条 Quick 队列停摆。
		if r := recover(); r != nil {
			d.logger.Error("xtimer: timer callback panic recovered", "panic", r)
		}
		d.obs.Fired(cell.Hint().Slow, time.Since(start))
	}()
	cell.Call()
}

// Stop 停止分发层：拒绝新的到期通知，并等待 Quick worker 与
// 所有在途 Slow goroutine 退出。幂等。
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopped)
	})
	_ = d.group.Wait()
}

func (d *Dispatcher) runQuick() {
	for {
		select {
		case tok := <-d.quick:
			d.Invoke(tok)
		case <-d.stopped:
			// 残留在队列里的令牌属于正被关闭的定时器，
			// 其删除标记/注册表移除已保证它们是空转调用，无需排空。
			return
		}
	}
}
