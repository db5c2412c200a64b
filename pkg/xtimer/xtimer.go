package xtimer

import "time"

// 包级便捷函数，全部绑定到 [Default] 队列。

// ScheduleTimer 在默认队列上调度定时器，参见 [TimerQueue.ScheduleTimer]。
func ScheduleTimer(due, period time.Duration, hint CallbackHint, handler func()) (*Timer, error) {
	return Default().ScheduleTimer(due, period, hint, handler)
}

// ScheduleOneshot 在默认队列上调度一次性定时器，参见 [TimerQueue.ScheduleOneshot]。
func ScheduleOneshot(due time.Duration, hint CallbackHint, handler func()) (*Timer, error) {
	return Default().ScheduleOneshot(due, hint, handler)
}

// ScheduleInterval 在默认队列上调度首次与周期都为 interval 的定时器。
func ScheduleInterval(interval time.Duration, hint CallbackHint, handler func()) (*Timer, error) {
	return Default().ScheduleTimer(interval, interval, hint, handler)
}

// FireOneshot 在默认队列上做 fire-and-forget 调度，参见 [TimerQueue.FireOneshot]。
func FireOneshot(due time.Duration, hint CallbackHint, handler func()) error {
	return Default().FireOneshot(due, hint, handler)
}
