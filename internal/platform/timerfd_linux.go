//go:build linux

package platform

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/omeyang/xtimer/internal/timercore"
)

// 系统调用函数变量，支持测试中 mock 替换以覆盖错误路径。
// 注意：mock 测试不可使用 t.Parallel()，因为替换包级变量会引发竞态。
var (
	timerfdCreate  = unix.TimerfdCreate
	timerfdSettime = unix.TimerfdSettime
	epollCreate1   = unix.EpollCreate1
	epollCtl       = unix.EpollCtl
	epollWait      = unix.EpollWait
	eventfd        = unix.Eventfd
)

// pollerRequest 是必须在 poller goroutine 上执行的操作：
// fd >= 0 表示释放该 timerfd，fd < 0 表示关闭整个后端。
// 设计决策: fd 的 read 与 close 全部收敛到 poller 单线程执行，
// 杜绝"另一线程 close 后 fd 被复用、poller 误读新 fd"的竞态。
type pollerRequest struct {
	fd    int
	reply chan error
}

// timerfdBackend 是 Linux 的 timerfd + epoll 后端。
type timerfdBackend struct {
	sink   Sink
	logger *slog.Logger

	epfd   int
	wakefd int

	// mu 串行化原生创建调用，并保护 timers 映射。
	mu     sync.Mutex
	timers map[int]timercore.Token

	reqs      chan pollerRequest
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newBackend(sink Sink, logger *slog.Logger) (Backend, error) {
	epfd, err := epollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	wakefd, err := eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := epollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll_ctl add eventfd: %w", err)
	}

	b := &timerfdBackend{
		sink:   sink,
		logger: logger,
		epfd:   epfd,
		wakefd: wakefd,
		timers: make(map[int]timercore.Token),
		reqs:   make(chan pollerRequest, 16),
		done:   make(chan struct{}),
	}
	go b.run()
	return b, nil
}

func (b *timerfdBackend) Create(due, period time.Duration, tok timercore.Token, hint timercore.Hint) (Handle, error) {
	select {
	case <-b.done:
		return 0, fmt.Errorf("timerfd backend closed")
	default:
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fd, err := timerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return 0, fmt.Errorf("timerfd_create: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := epollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		_ = unix.Close(fd)
		return 0, fmt.Errorf("epoll_ctl add: %w", err)
	}

	// 先登记再武装：due 接近零的定时器可能在本函数返回前就到期，
	// poller 必须已经能把 fd 解析成令牌。
	b.timers[fd] = tok
	if err := armTimerfd(fd, due, period); err != nil {
		delete(b.timers, fd)
		_ = epollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil)
		_ = unix.Close(fd)
		return 0, err
	}
	return Handle(fd), nil
}

func (b *timerfdBackend) Rearm(h Handle, due, period time.Duration) error {
	return armTimerfd(int(h), due, period)
}

func (b *timerfdBackend) Cancel(h Handle) error {
	// 全零 itimerspec = 解除武装。
	spec := unix.ItimerSpec{}
	if err := timerfdSettime(int(h), 0, &spec, nil); err != nil {
		return fmt.Errorf("timerfd_settime disarm: %w", err)
	}
	return nil
}

func (b *timerfdBackend) Release(h Handle) error {
	req := pollerRequest{fd: int(h), reply: make(chan error, 1)}
	select {
	case b.reqs <- req:
		b.wake()
		select {
		case err := <-req.reply:
			return err
		case <-b.done:
			return nil
		}
	case <-b.done:
		// poller 已退出，残余 fd 已由关闭路径统一回收。
		return nil
	}
}

func (b *timerfdBackend) Close() error {
	b.closeOnce.Do(func() {
		req := pollerRequest{fd: -1, reply: make(chan error, 1)}
		select {
		case b.reqs <- req:
			b.wake()
			select {
			case b.closeErr = <-req.reply:
			case <-b.done:
			}
		case <-b.done:
		}
	})
	return b.closeErr
}

// run 是 poller goroutine：只读取到期计数、查找令牌并做分发决策，
// 用户代码从不在这里执行。
func (b *timerfdBackend) run() {
	events := make([]unix.EpollEvent, 64)
	var buf [8]byte

	for {
		n, err := epollWait(b.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			b.logger.Error("xtimer: epoll_wait failed, poller exits", "error", err)
			b.shutdown()
			return
		}

		woken := false
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == b.wakefd {
				b.drainWake()
				woken = true
				continue
			}
			b.handleExpiry(fd, buf[:])
		}

		if woken && b.serveRequests() {
			return
		}
	}
}

func (b *timerfdBackend) handleExpiry(fd int, buf []byte) {
	rn, err := unix.Read(fd, buf)
	if err != nil || rn != 8 {
		if err != unix.EAGAIN {
			b.logger.Debug("xtimer: read timerfd expiry failed", "fd", fd, "error", err)
		}
		return
	}
	count := binary.NativeEndian.Uint64(buf)

	b.mu.Lock()
	tok, ok := b.timers[fd]
	b.mu.Unlock()
	if !ok {
		return
	}

	// 到期计数 > 1 说明 poller 落后于时钟，为每次到期各分发一次，
	// 与信号型后端"每次到期一个信号"的行为一致。
	for j := uint64(0); j < count; j++ {
		if err := b.sink.Dispatch(tok); err != nil {
			b.logger.Error("xtimer: dispatch expired timer failed", "token", uint64(tok), "error", err)
			return
		}
	}
}

// serveRequests 处理积压的 poller 请求，收到关闭请求时返回 true。
func (b *timerfdBackend) serveRequests() bool {
	for {
		select {
		case req := <-b.reqs:
			if req.fd < 0 {
				b.shutdown()
				req.reply <- nil
				return true
			}
			req.reply <- b.releaseFD(req.fd)
		default:
			return false
		}
	}
}

func (b *timerfdBackend) releaseFD(fd int) error {
	b.mu.Lock()
	delete(b.timers, fd)
	b.mu.Unlock()

	if err := epollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		b.logger.Debug("xtimer: epoll_ctl del failed", "fd", fd, "error", err)
	}
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("close timerfd: %w", err)
	}
	return nil
}

// shutdown 回收所有残余 fd 并宣告 poller 退出。只在 poller goroutine 上执行。
func (b *timerfdBackend) shutdown() {
	b.mu.Lock()
	for fd := range b.timers {
		_ = epollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil)
		_ = unix.Close(fd)
	}
	b.timers = make(map[int]timercore.Token)
	b.mu.Unlock()

	_ = unix.Close(b.wakefd)
	_ = unix.Close(b.epfd)
	close(b.done)
}

func (b *timerfdBackend) wake() {
	var one [8]byte
	one[0] = 1
	if _, err := unix.Write(b.wakefd, one[:]); err != nil && err != unix.EAGAIN {
		b.logger.Debug("xtimer: wake poller failed", "error", err)
	}
}

func (b *timerfdBackend) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(b.wakefd, buf[:]); err != nil {
			return
		}
	}
}

func armTimerfd(fd int, due, period time.Duration) error {
	spec := unix.ItimerSpec{
		Value:    dueTimespec(due),
		Interval: periodTimespec(period),
	}
	if err := timerfdSettime(fd, 0, &spec, nil); err != nil {
		return fmt.Errorf("timerfd_settime: %w", err)
	}
	return nil
}

// dueTimespec 把 due 钳到至少 1ns：it_value 为全零意味着解除武装，
// 而调用方的 due=0 意味着"立即触发"。
func dueTimespec(due time.Duration) unix.Timespec {
	if due <= 0 {
		return unix.Timespec{Nsec: 1}
	}
	return unix.NsecToTimespec(due.Nanoseconds())
}

func periodTimespec(period time.Duration) unix.Timespec {
	if period <= 0 {
		return unix.Timespec{}
	}
	return unix.NsecToTimespec(period.Nanoseconds())
}
