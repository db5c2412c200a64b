package xtimer

import "log/slog"

// Option 定义 TimerQueue 可选配置。
type Option func(*options)

type options struct {
	logger         *slog.Logger
	name           string
	quickQueueSize int
	observer       Observer
}

func defaultOptions() options {
	return options{
		logger: slog.Default(),
	}
}

// WithLogger 设置自定义日志记录器。
// 默认使用 slog.Default()。传入 nil 将被忽略，保持使用默认值。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置队列名称，用于在多实例场景下区分日志来源。
// 默认为空字符串（日志中不包含名称）。
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithQuickQueueSize 设置 Quick 分发通道的容量。
// 通道满时到期通知的投递会阻塞（不丢弃），更大的容量可以在
// Quick 回调偶发变慢时平滑积压。n <= 0 使用默认值 1024。
func WithQuickQueueSize(n int) Option {
	return func(o *options) {
		o.quickQueueSize = n
	}
}

// WithObserver 设置观测器，接收回调触发/丢弃事件。
// 默认为空实现。传入 nil 将被忽略。参见 [NewOTelObserver]。
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}
