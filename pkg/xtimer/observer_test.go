package xtimer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOTelObserver(t *testing.T) {
	// 未安装 SDK 时全局 provider 为 no-op，仪表创建与记录都不得失败。
	obs, err := NewOTelObserver(WithInstrumentationName("xtimer-test"))
	require.NoError(t, err)
	require.NotNil(t, obs)

	assert.NotPanics(t, func() {
		obs.Fired(false, time.Millisecond)
		obs.Fired(true, time.Second)
		obs.Dropped()
	})
}

func TestObserverOptionNilGuards(t *testing.T) {
	cfg := &observerConfig{instrumentationName: defaultInstrumentationName}
	WithInstrumentationName("")(cfg)
	WithMeterProvider(nil)(cfg)

	assert.Equal(t, defaultInstrumentationName, cfg.instrumentationName)
	assert.Nil(t, cfg.meterProvider)
}
