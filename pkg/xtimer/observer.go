package xtimer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xtimer/internal/timercore"
)

// Observer 接收分发层的观测事件。
// Fired 在每次回调调用结束后上报，Dropped 在分发层停止后
// 到期通知被丢弃时上报。实现必须并发安全且不得阻塞。
type Observer = timercore.Observer

const (
	defaultInstrumentationName = "github.com/omeyang/xtimer"

	metricCallbackTotal    = "xtimer.callback.total"
	metricCallbackDuration = "xtimer.callback.duration"
	metricDispatchDropped  = "xtimer.dispatch.dropped"
)

type observerConfig struct {
	instrumentationName string
	meterProvider       metric.MeterProvider
}

// ObserverOption 定义 OTel Observer 的配置选项。
type ObserverOption func(*observerConfig)

// WithInstrumentationName 设置 OTel instrumentation 名称。
func WithInstrumentationName(name string) ObserverOption {
	return func(cfg *observerConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithMeterProvider 设置 MeterProvider。
// 默认使用全局 provider（未安装 SDK 时为 no-op）。
func WithMeterProvider(provider metric.MeterProvider) ObserverOption {
	return func(cfg *observerConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer。
func NewOTelObserver(opts ...ObserverOption) (Observer, error) {
	cfg := &observerConfig{
		instrumentationName: defaultInstrumentationName,
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)

	total, err := meter.Int64Counter(
		metricCallbackTotal,
		metric.WithDescription("timer callback invocations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtimer: create counter failed: %w", err)
	}
	duration, err := meter.Float64Histogram(
		metricCallbackDuration,
		metric.WithDescription("timer callback duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtimer: create histogram failed: %w", err)
	}
	dropped, err := meter.Int64Counter(
		metricDispatchDropped,
		metric.WithDescription("expirations dropped by a stopped dispatcher"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtimer: create counter failed: %w", err)
	}

	return &otelObserver{total: total, duration: duration, dropped: dropped}, nil
}

type otelObserver struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
	dropped  metric.Int64Counter
}

var (
	attrsQuick = metric.WithAttributes(attribute.String("policy", "quick"))
	attrsSlow  = metric.WithAttributes(attribute.String("policy", "slow"))
)

func (o *otelObserver) Fired(slow bool, elapsed time.Duration) {
	attrs := attrsQuick
	if slow {
		attrs = attrsSlow
	}
	// 触发事件没有调用方 context，统一用 Background 记录。
	ctx := context.Background()
	o.total.Add(ctx, 1, attrs)
	o.duration.Record(ctx, elapsed.Seconds(), attrs)
}

func (o *otelObserver) Dropped() {
	o.dropped.Add(context.Background(), 1)
}
