// Package platform 把共享的定时器协议（internal/timercore）适配到各
// 操作系统的原生定时器设施，一个接口、按构建标签选择实现：
//
//   - linux: timerfd + epoll。每个定时器一个 timerfd，单个 poller
//     goroutine 读取到期计数并做令牌查找 + 分发决策，用户代码从不在
//     poller 上执行
//   - windows: timer-queue API（kernel32）。分发提示映射为 WT_* 执行
//     策略标志，回调在 OS 线程池线程上经注册表存在性检查后内联执行
//   - 其余平台: 运行时定时器（time.AfterFunc）回退实现，行为语义一致
//
// 后端只翻译通知，不持有协议状态：删除标记、in-flight 计数与注册表
// 都在 timercore 中，因此拆除同步协议只写一份。
package platform
