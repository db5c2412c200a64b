package platform

import (
	"log/slog"
	"time"

	"github.com/omeyang/xtimer/internal/timercore"
)

// Handle 是后端分配的原生定时器资源句柄。
// 含义由具体后端解释（Linux 为 timerfd，Windows 为 timer-queue timer 句柄，
// 其余平台为内部索引），创建成功后由定时器句柄独占持有。
type Handle uintptr

// Sink 是后端把到期通知交还协议层的出口，由 [timercore.Dispatcher] 实现。
type Sink interface {
	// Dispatch 按回调提示路由一次到期（poller 型后端使用）。
	Dispatch(tok timercore.Token) error
	// Invoke 在当前线程内联执行一次回调（线程池型后端使用，
	// 执行策略已经由创建时的原生标志交给 OS）。
	Invoke(tok timercore.Token)
}

// Backend 把 (due, period, token) 适配到原生定时器的创建/重臂/取消调用，
// 并把原生到期通知路由进 Sink。每个 TimerQueue 独占一个后端实例。
//
// Cancel 是 best-effort 的：部分后端只保证不再产生新的触发，
// 不保证中止在途触发，返回值仅用于日志。内存安全由协议层的
// IdleWait 保证，与取消是否同步无关。
type Backend interface {
	// Create 创建并武装一个原生定时器。period == 0 表示一次性。
	// 失败时不留下任何存活的部分资源。
	Create(due, period time.Duration, tok timercore.Token, hint timercore.Hint) (Handle, error)

	// Rearm 重设定时器的到期时间与周期。
	Rearm(h Handle, due, period time.Duration) error

	// Cancel 尽力解除武装，不释放资源。
	Cancel(h Handle) error

	// Release 释放原生句柄。只能在协议层确认 in-flight 归零后调用。
	Release(h Handle) error

	// Close 释放后端自身的资源并停止其通知循环。幂等。
	Close() error
}

// New 创建当前平台的后端实现（构建标签选择）。
func New(sink Sink, logger *slog.Logger) (Backend, error) {
	if sink == nil {
		panic("xtimer: nil sink")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return newBackend(sink, logger)
}
