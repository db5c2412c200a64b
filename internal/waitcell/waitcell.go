package waitcell

import (
	"sync"
	"time"
)

// State 是一个可等待的状态单元：写侧通过 [State.Set] / [State.Update] 更新状态，
// 读侧通过 [State.Wait] 以谓词 + 超时的方式等待状态满足条件。
//
// 实现为互斥锁 + 每次更新后重建的广播 channel：Set 关闭旧 channel 唤醒
// 所有等待者，等待者重新在锁内检查谓词。所有等待都是有界的。
//
// 零值不可用，必须通过 [New] 创建。
type State[T any] struct {
	mu sync.Mutex
	v  T
	ch chan struct{}
}

// New 创建一个初始值为 initial 的状态单元。
func New[T any](initial T) *State[T] {
	return &State[T]{v: initial, ch: make(chan struct{})}
}

// Set 将状态替换为 v，并唤醒所有等待者。
func (s *State[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v = v
	s.broadcastLocked()
}

// Update 在锁内用 f 变换当前状态，并唤醒所有等待者。
// f 不得阻塞，也不得回调本状态单元的任何方法。
func (s *State[T]) Update(f func(T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v = f(s.v)
	s.broadcastLocked()
	return s.v
}

// Get 返回当前状态的快照。
func (s *State[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v
}

// Wait 阻塞直到 pred(状态) 为真或超时。
// 返回最后一次观察到的状态，以及谓词是否在超时前得到满足。
// timeout <= 0 表示只做一次即时检查，不等待。
func (s *State[T]) Wait(pred func(T) bool, timeout time.Duration) (T, bool) {
	s.mu.Lock()
	if pred(s.v) {
		v := s.v
		s.mu.Unlock()
		return v, true
	}
	if timeout <= 0 {
		v := s.v
		s.mu.Unlock()
		return v, false
	}
	s.mu.Unlock()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		if pred(s.v) {
			v := s.v
			s.mu.Unlock()
			return v, true
		}
		ch := s.ch
		s.mu.Unlock()

		select {
		case <-ch:
			// 状态变化，重新检查谓词。
		case <-deadline.C:
			// 超时路径最后再检查一次，避免在唤醒与超时同时发生时误报。
			s.mu.Lock()
			v, ok := s.v, pred(s.v)
			s.mu.Unlock()
			return v, ok
		}
	}
}

func (s *State[T]) broadcastLocked() {
	close(s.ch)
	s.ch = make(chan struct{})
}
