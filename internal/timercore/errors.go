package timercore

import "errors"

// 设计决策: 错误前缀使用 "xtimer:" 而非 "timercore:"，因为这些错误会被
// pkg/xtimer 重导出给终端用户，不应暴露 internal 包名。
var (
	// ErrSynchronizationBroken 表示内部分发通道或交接槽已不可用。
	// 这类故障指示内部状态损坏而非用户可处理的条件，调用方不应重试。
	ErrSynchronizationBroken = errors.New("xtimer: synchronization broken")
)
