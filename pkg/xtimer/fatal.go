package xtimer

import (
	"fmt"
	"os"
)

// fatalHook 在拆除协议无法安全推进时终止进程（IdleWait 超时、
// 交接槽永不就位）。继续执行意味着可能释放仍被在途回调引用的内存，
// 终止进程是有意的、文档化的行为。
// 设计决策: 使用包级变量 mock 模式（与后端的系统调用变量一致），
// 测试可以替换它来观察致命路径而不终止测试进程；替换后拆除流程
// 原地返回、不释放资源，宁可泄漏也不冒未定义行为的风险。
var fatalHook = func(msg string) {
	fmt.Fprintln(os.Stderr, "xtimer: FATAL: "+msg)
	os.Exit(2)
}
