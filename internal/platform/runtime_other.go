//go:build !linux && !windows

package platform

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/omeyang/xtimer/internal/timercore"
)

// runtimeBackend 是没有可用原生定时器设施平台上的回退实现：
// 运行时定时器（time.AfterFunc）就是该平台的"原生"设施。
// 分发路径与其它后端一致：AfterFunc 的触发 goroutine 只做分发决策。
type runtimeBackend struct {
	sink   Sink
	logger *slog.Logger

	mu     sync.Mutex
	next   Handle
	timers map[Handle]*runtimeTimer
	closed bool
}

type runtimeTimer struct {
	b   *runtimeBackend
	h   Handle
	tok timercore.Token

	mu      sync.Mutex
	timer   *time.Timer
	period  time.Duration
	stopped bool
}

func newBackend(sink Sink, logger *slog.Logger) (Backend, error) {
	return &runtimeBackend{
		sink:   sink,
		logger: logger,
		timers: make(map[Handle]*runtimeTimer),
	}, nil
}

func (b *runtimeBackend) Create(due, period time.Duration, tok timercore.Token, _ timercore.Hint) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, fmt.Errorf("runtime timer backend closed")
	}

	b.next++
	rt := &runtimeTimer{b: b, h: b.next, tok: tok, period: period}
	b.timers[rt.h] = rt
	rt.timer = time.AfterFunc(clampDue(due), rt.fire)
	return rt.h, nil
}

func (b *runtimeBackend) Rearm(h Handle, due, period time.Duration) error {
	rt, ok := b.lookup(h)
	if !ok {
		return fmt.Errorf("rearm: unknown timer handle %d", h)
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.period = period
	rt.stopped = false
	rt.timer.Stop()
	rt.timer.Reset(clampDue(due))
	return nil
}

func (b *runtimeBackend) Cancel(h Handle) error {
	rt, ok := b.lookup(h)
	if !ok {
		return fmt.Errorf("cancel: unknown timer handle %d", h)
	}
	rt.disarm()
	return nil
}

func (b *runtimeBackend) Release(h Handle) error {
	b.mu.Lock()
	rt, ok := b.timers[h]
	delete(b.timers, h)
	b.mu.Unlock()
	if ok {
		rt.disarm()
	}
	return nil
}

func (b *runtimeBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	remaining := make([]*runtimeTimer, 0, len(b.timers))
	for h, rt := range b.timers {
		remaining = append(remaining, rt)
		delete(b.timers, h)
	}
	b.mu.Unlock()

	for _, rt := range remaining {
		rt.disarm()
	}
	return nil
}

func (b *runtimeBackend) lookup(h Handle) (*runtimeTimer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rt, ok := b.timers[h]
	return rt, ok
}

func (rt *runtimeTimer) fire() {
	if err := rt.b.sink.Dispatch(rt.tok); err != nil {
		rt.b.logger.Error("xtimer: dispatch expired timer failed", "token", uint64(rt.tok), "error", err)
		return
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.stopped && rt.period > 0 {
		rt.timer.Reset(rt.period)
	}
}

func (rt *runtimeTimer) disarm() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.stopped = true
	rt.timer.Stop()
}

// clampDue 把非正的 due 钳到最小正值，语义是"立即触发"而非"永不触发"。
func clampDue(due time.Duration) time.Duration {
	if due <= 0 {
		return time.Nanosecond
	}
	return due
}
