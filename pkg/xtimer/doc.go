// Package xtimer 提供由操作系统原生定时器设施驱动的回调调度：
// 一次性与周期性定时器，以及脱管的 fire-and-forget 模式。
//
// # 功能概览
//
//   - [TimerQueue.ScheduleTimer]: 调度定时器，period == 0 为一次性，
//     period > 0 为首次在 due 到期、之后按 period 重复
//   - [TimerQueue.ScheduleOneshot]: 回调至多执行一次的一次性定时器
//   - [TimerQueue.FireOneshot]: 不暴露句柄的 fire-and-forget 调度，
//     回调完成后由独立 goroutine 自行拆除底层定时器
//   - [Timer.ChangePeriod]: 重设到期时间与周期
//   - [Timer.Close]: 幂等关闭，执行拆除同步协议
//   - [Default]: 进程级单例队列，以及绑定到它的包级便捷函数
//
// # 拆除同步保证
//
// OS 在库无法控制的线程上异步触发回调，而定时器可能同时被任意调用方
// 关闭。Close 的契约是无条件的内存安全：
//
//   - Close 返回后，该定时器的回调不会再开始任何新的执行
//   - Close 会阻塞直到在途执行退出，上界为回调声明的可接受执行时间
//     （[Slow] 的参数，Quick 回调为 [DefaultAcceptableExecutionTime]）
//   - 等待超时是致命条件：用户代码超出声明预算仍在执行，而宿主内存
//     即将释放，库选择记录日志并终止进程，而不是冒未定义行为的风险。
//     这是有意为之并在此文档化的行为，不是缺陷
//
// 原生层面的取消/删除失败只记日志不上报：调用方对析构期的 OS 错误
// 无从反应，best-effort 清理不影响内存安全保证。
//
// # 分发策略
//
// [Quick] 回调由每队列一个的共享 worker 串行执行，适合微秒级的轻回调；
// [Slow] 回调每次触发独占一个 goroutine。同一周期定时器执行超过周期时，
// 相邻触发可能在不同 goroutine 上重叠执行，库有意不做串行化。
//
// # 平台支持
//
// Linux 使用 timerfd + epoll，Windows 使用 timer-queue API，
// 其余平台回退到运行时定时器。行为语义一致，触发精度以各平台
// 原生设施为准（亚毫秒抖动不在保证范围内）。
package xtimer
