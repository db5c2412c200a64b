//go:build windows

package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/omeyang/xtimer/internal/timercore"
)

var (
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procCreateTimerQueue      = kernel32.NewProc("CreateTimerQueue")
	procCreateTimerQueueTimer = kernel32.NewProc("CreateTimerQueueTimer")
	procChangeTimerQueueTimer = kernel32.NewProc("ChangeTimerQueueTimer")
	procDeleteTimerQueueTimer = kernel32.NewProc("DeleteTimerQueueTimer")
	procDeleteTimerQueueEx    = kernel32.NewProc("DeleteTimerQueueEx")
)

// WT_* 执行策略标志，分发提示在创建时映射到这里，
// 由 OS 线程池代替进程内分发层做线程选择。
const (
	wtExecuteDefault            = 0x00000000
	wtExecuteOnlyOnce           = 0x00000008
	wtExecuteLongFunction       = 0x00000010
	wtExecuteInPersistentThread = 0x00000080
)

// 回调上下文表：OS 回调携带的附加值是表内的稳定 key，而非裸指针。
// NewCallback 在进程内只能创建有限个回调，因此回调必须全局唯一，
// 并通过上下文表路由到具体后端。
var (
	winCtxMu   sync.Mutex
	winCtxNext uintptr
	winCtxs    = make(map[uintptr]winCtx)
)

type winCtx struct {
	sink Sink
	tok  timercore.Token
}

var timerQueueCallback = windows.NewCallback(func(ctx, _ uintptr) uintptr {
	winCtxMu.Lock()
	c, ok := winCtxs[ctx]
	winCtxMu.Unlock()
	if ok {
		// 执行策略已由 WT_* 标志交给 OS 线程池，这里内联执行；
		// Invoke 自带注册表存在性检查与 panic 恢复。
		c.sink.Invoke(c.tok)
	}
	return 0
})

func registerWinCtx(sink Sink, tok timercore.Token) uintptr {
	winCtxMu.Lock()
	defer winCtxMu.Unlock()
	winCtxNext++
	key := winCtxNext
	winCtxs[key] = winCtx{sink: sink, tok: tok}
	return key
}

func unregisterWinCtx(key uintptr) {
	winCtxMu.Lock()
	delete(winCtxs, key)
	winCtxMu.Unlock()
}

// timerQueueBackend 包装 Windows timer-queue API。
type timerQueueBackend struct {
	sink   Sink
	logger *slog.Logger
	queue  windows.Handle

	mu     sync.Mutex
	timers map[Handle]uintptr // timer 句柄 → 回调上下文 key
	closed bool
}

func newBackend(sink Sink, logger *slog.Logger) (Backend, error) {
	r1, _, err := procCreateTimerQueue.Call()
	if r1 == 0 {
		return nil, fmt.Errorf("CreateTimerQueue: %w", err)
	}
	return &timerQueueBackend{
		sink:   sink,
		logger: logger,
		queue:  windows.Handle(r1),
		timers: make(map[Handle]uintptr),
	}, nil
}

func (b *timerQueueBackend) Create(due, period time.Duration, tok timercore.Token, hint timercore.Hint) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, fmt.Errorf("timer queue backend closed")
	}

	flags := uintptr(wtExecuteDefault)
	if hint.Slow {
		flags |= wtExecuteLongFunction
	} else {
		// Quick 回调固定在持久线程上执行，与共享串行 worker 语义对应。
		flags |= wtExecuteInPersistentThread
	}
	if period == 0 {
		flags |= wtExecuteOnlyOnce
	}

	key := registerWinCtx(b.sink, tok)
	var h windows.Handle
	r1, _, err := procCreateTimerQueueTimer.Call(
		uintptr(unsafe.Pointer(&h)),
		uintptr(b.queue),
		timerQueueCallback,
		key,
		uintptr(due.Milliseconds()),
		uintptr(period.Milliseconds()),
		flags,
	)
	if r1 == 0 {
		unregisterWinCtx(key)
		return 0, fmt.Errorf("CreateTimerQueueTimer: %w", err)
	}
	b.timers[Handle(h)] = key
	return Handle(h), nil
}

func (b *timerQueueBackend) Rearm(h Handle, due, period time.Duration) error {
	r1, _, err := procChangeTimerQueueTimer.Call(
		uintptr(b.queue), uintptr(h),
		uintptr(due.Milliseconds()), uintptr(period.Milliseconds()),
	)
	if r1 == 0 {
		return fmt.Errorf("ChangeTimerQueueTimer: %w", err)
	}
	return nil
}

func (b *timerQueueBackend) Cancel(h Handle) error {
	// 重臂为 (0, 0)：立即触发一次后不再重复，触发本身被删除标记挡下。
	// timer-queue API 没有纯粹的解除武装调用，这是原生的 best-effort 形态。
	return b.Rearm(h, 0, 0)
}

func (b *timerQueueBackend) Release(h Handle) error {
	b.mu.Lock()
	key, ok := b.timers[h]
	delete(b.timers, h)
	b.mu.Unlock()
	if ok {
		defer unregisterWinCtx(key)
	}

	// CompletionEvent 传 0：异步删除，ERROR_IO_PENDING 属预期返回。
	// 正确性由协议层 IdleWait 保证，不依赖删除的同步性。
	r1, _, err := procDeleteTimerQueueTimer.Call(uintptr(b.queue), uintptr(h), 0)
	if r1 == 0 && !errors.Is(err, windows.ERROR_IO_PENDING) {
		return fmt.Errorf("DeleteTimerQueueTimer: %w", err)
	}
	return nil
}

func (b *timerQueueBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for h, key := range b.timers {
		unregisterWinCtx(key)
		delete(b.timers, h)
	}
	b.mu.Unlock()

	// INVALID_HANDLE_VALUE：阻塞到所有在途回调完成后再删除队列。
	r1, _, err := procDeleteTimerQueueEx.Call(uintptr(b.queue), uintptr(windows.InvalidHandle))
	if r1 == 0 && !errors.Is(err, windows.ERROR_IO_PENDING) {
		return fmt.Errorf("DeleteTimerQueueEx: %w", err)
	}
	return nil
}
