package timercore

import (
	"sync"
	"sync/atomic"
)

// Token 是回调单元在注册表中的稳定令牌。
// OS 通知上下文携带 Token 而非裸指针，宽度与 uintptr 兼容，
// 可以直接作为原生回调的附加值传递。0 保留为无效令牌。
type Token uint64

// Registry 维护 Token → *Cell 的映射。
// 查找带存在性检查：已拆除定时器的迟到通知在这里落空。
type Registry struct {
	mu    sync.RWMutex
	cells map[Token]*Cell
	next  atomic.Uint64
}

// NewRegistry 创建空注册表。
func NewRegistry() *Registry {
	return &Registry{cells: make(map[Token]*Cell)}
}

// Register 注册回调单元并分配令牌。令牌单调递增，进程内不复用。
func (r *Registry) Register(c *Cell) Token {
	tok := Token(r.next.Add(1))
	r.mu.Lock()
	r.cells[tok] = c
	r.mu.Unlock()
	return tok
}

// Lookup 按令牌查找回调单元。
func (r *Registry) Lookup(tok Token) (*Cell, bool) {
	r.mu.RLock()
	c, ok := r.cells[tok]
	r.mu.RUnlock()
	return c, ok
}

// Remove 移除令牌对应的回调单元，返回是否存在。
// 这是拆除协议的最后一步：移除后单元对通知上下文不再可达。
func (r *Registry) Remove(tok Token) bool {
	r.mu.Lock()
	_, ok := r.cells[tok]
	delete(r.cells, tok)
	r.mu.Unlock()
	return ok
}

// Len 返回当前注册的单元数量（瞬时快照，仅用于测试与调试）。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cells)
}
