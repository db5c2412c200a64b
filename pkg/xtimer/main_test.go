package xtimer

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// 默认队列与进程同生命周期，其 Quick worker 与 poller 不拆除，
	// 属已知驻留 goroutine 而非泄漏。
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("github.com/omeyang/xtimer/internal/timercore.(*Dispatcher).runQuick"),
		goleak.IgnoreAnyFunction("github.com/omeyang/xtimer/internal/platform.(*timerfdBackend).run"),
	)
}
