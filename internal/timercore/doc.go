// Package timercore 实现各平台后端共享的定时器协议：回调单元、令牌注册表
// 与分发层。平台后端只负责把 OS 到期通知翻译成令牌，协议逻辑只写一份。
//
// # 功能概览
//
//   - [Cell]: 回调单元，持有用户闭包、删除标记与 in-flight 计数，
//     是拆除同步协议的核心
//   - [Registry]: 令牌 → 回调单元注册表，OS 通知上下文通过稳定令牌
//     （而非裸指针）定位回调单元，查找时做存在性检查
//   - [Dispatcher]: 分发层，Quick 回调由共享 worker 串行执行，
//     Slow 回调每次触发独占一个 goroutine
//
// # 拆除协议
//
// 销毁一个定时器的线性步骤（全部在关闭方 goroutine 上顺序执行）：
//
//  1. MarkDeleted —— 此后不再有新调用进入回调体
//  2. 后端 best-effort 解除武装（失败只记日志）
//  3. WaitIdle —— 有界等待 in-flight 归零，超时即致命
//  4. 释放原生句柄
//  5. 从注册表移除回调单元
//
// 迟到的 OS 通知在注册表查找阶段落空，天然无害。
package timercore
