// Package waitcell 提供带谓词等待的状态单元，是定时器拆除协议和
// fire-oneshot 句柄交接的底层等待/唤醒原语。
//
// # 功能概览
//
//   - [State]: 泛型状态单元，支持 Set/Update/Get 与有界的谓词等待
//
// # 使用场景
//
//   - in-flight 计数：回调进入/退出时 Update 计数，拆除方 Wait 计数归零
//   - 交接槽：调度方在 OS 接受创建后 Set 原生句柄，回调方 Wait 其就位
//
// 所有等待均有超时上界，不提供无界阻塞。
package waitcell
