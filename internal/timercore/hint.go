package timercore

import "time"

// DefaultAcceptableExecutionTime 是未声明执行预算的回调在拆除阶段
// 允许的最长收尾时间。
const DefaultAcceptableExecutionTime = 2 * time.Second

// Hint 描述一个回调的分发策略与执行预算。
// 零值表示 Quick：由共享 worker 串行执行，使用默认执行预算。
type Hint struct {
	// Slow 为真时每次触发在独立 goroutine 上执行，
	// 同一定时器的相邻触发可能重叠（有意不串行化）。
	Slow bool

	// AcceptableExecutionTime 是回调单次执行的最长预期耗时，
	// 拆除阶段以它作为等待 in-flight 归零的上界。零值使用默认值。
	AcceptableExecutionTime time.Duration
}

// ExecutionBudget 返回拆除阶段的等待上界。
func (h Hint) ExecutionBudget() time.Duration {
	if h.AcceptableExecutionTime > 0 {
		return h.AcceptableExecutionTime
	}
	return DefaultAcceptableExecutionTime
}
