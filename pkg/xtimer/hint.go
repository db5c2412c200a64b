package xtimer

import (
	"time"

	"github.com/omeyang/xtimer/internal/timercore"
)

// DefaultAcceptableExecutionTime 是 Quick 回调在拆除阶段允许的
// 最长收尾时间。
const DefaultAcceptableExecutionTime = timercore.DefaultAcceptableExecutionTime

// CallbackHint 描述回调的分发策略与执行预算。
// 零值等价于 [Quick]。
type CallbackHint struct {
	h timercore.Hint
}

// Quick 声明回调轻而快：由队列的共享 worker 串行执行，
// 拆除等待上界为 [DefaultAcceptableExecutionTime]。
func Quick() CallbackHint {
	return CallbackHint{}
}

// Slow 声明回调可能耗时：每次触发独占一个 goroutine 执行，
// maxExpected 同时作为拆除阶段等待在途执行退出的上界。
// maxExpected <= 0 时使用 [DefaultAcceptableExecutionTime]。
//
// 执行超过周期的 Slow 周期回调，相邻触发可能重叠执行（有意不串行化）。
func Slow(maxExpected time.Duration) CallbackHint {
	return CallbackHint{h: timercore.Hint{Slow: true, AcceptableExecutionTime: maxExpected}}
}

// IsSlow 报告是否为 Slow 策略。
func (h CallbackHint) IsSlow() bool { return h.h.Slow }

// AcceptableExecutionTime 返回拆除阶段的等待上界。
func (h CallbackHint) AcceptableExecutionTime() time.Duration {
	return h.h.ExecutionBudget()
}
