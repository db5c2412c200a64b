package xtimer

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/omeyang/xtimer/internal/timercore"
)

var (
	// ErrSynchronizationBroken 表示内部分发通道或交接槽已不可用。
	// 出现即指示内部状态损坏，调用方不应重试。
	ErrSynchronizationBroken = timercore.ErrSynchronizationBroken

	// ErrNegativeDuration 表示 due 或 period 为负值，属调用方契约违反。
	ErrNegativeDuration = errors.New("xtimer: negative due or period")

	// ErrQueueClosed 表示定时器队列已关闭。
	ErrQueueClosed = errors.New("xtimer: timer queue closed")

	// ErrTimerClosed 表示定时器已关闭，不可再变更。
	ErrTimerClosed = errors.New("xtimer: timer closed")

	// ErrDefaultQueue 表示对进程级默认队列的非法操作。
	// 默认队列与进程同生命周期，不提供拆除。
	ErrDefaultQueue = errors.New("xtimer: default queue cannot be closed")
)

// OsError 表示一次原生调用失败。操作已中止，不留下存活的部分资源。
type OsError struct {
	// Op 是失败的操作名。
	Op string
	// Code 是原生错误码（可提取时），否则为 0。
	Code int
	// Err 是底层错误，保留 errno 链，支持 errors.Is/As。
	Err error
}

func (e *OsError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("xtimer: %s: os error %d: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("xtimer: %s: %v", e.Op, e.Err)
}

func (e *OsError) Unwrap() error { return e.Err }

// newOsError 把后端返回的错误包装为 [OsError]，并尽力提取原生错误码。
func newOsError(op string, err error) error {
	if err == nil {
		return nil
	}
	code := 0
	var errno syscall.Errno
	if errors.As(err, &errno) {
		code = int(errno)
	}
	return &OsError{Op: op, Code: code, Err: err}
}
