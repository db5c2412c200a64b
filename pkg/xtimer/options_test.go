package xtimer

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsDefaults(t *testing.T) {
	o := defaultOptions()
	assert.NotNil(t, o.logger)
	assert.Empty(t, o.name)
	assert.Zero(t, o.quickQueueSize)
	assert.Nil(t, o.observer)
}

func TestOptionsNilGuards(t *testing.T) {
	o := defaultOptions()
	WithLogger(nil)(&o)
	WithObserver(nil)(&o)
	assert.NotNil(t, o.logger, "nil logger must be ignored")
	assert.Nil(t, o.observer)
}

func TestOptionsApply(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	o := defaultOptions()
	WithLogger(logger)(&o)
	WithName("scheduler")(&o)
	WithQuickQueueSize(256)(&o)

	assert.Same(t, logger, o.logger)
	assert.Equal(t, "scheduler", o.name)
	assert.Equal(t, 256, o.quickQueueSize)
}
