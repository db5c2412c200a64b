package xtimer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuickHint(t *testing.T) {
	h := Quick()
	assert.False(t, h.IsSlow())
	assert.Equal(t, DefaultAcceptableExecutionTime, h.AcceptableExecutionTime())

	var zero CallbackHint
	assert.Equal(t, h, zero, "zero value must equal Quick")
}

func TestSlowHint(t *testing.T) {
	h := Slow(5 * time.Second)
	assert.True(t, h.IsSlow())
	assert.Equal(t, 5*time.Second, h.AcceptableExecutionTime())

	assert.Equal(t, DefaultAcceptableExecutionTime, Slow(0).AcceptableExecutionTime())
	assert.Equal(t, DefaultAcceptableExecutionTime, Slow(-time.Second).AcceptableExecutionTime())
}
