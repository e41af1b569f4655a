//go:build linux

// Package hostloop provides a reference dbus.HostLoop backed by Linux
// epoll and a container/heap timer queue, grounded in the same
// fd-readiness/timer-heap shape real async-IO loops in the Go ecosystem
// use. It exists so a standalone daemon built on this module's dbus
// package has a real event loop to run, without requiring an existing
// framework's main loop (net/http's, a GUI toolkit's, etc.) to embed
// into.
package hostloop

import (
	"container/heap"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mordilloSan/dbusd/dbus"
)

// Loop is a single-threaded epoll + timer-heap event loop implementing
// dbus.HostLoop. It is not safe for concurrent use except via its
// WakeUp method, which may be called from any goroutine.
type Loop struct {
	epfd int

	mu       sync.Mutex
	watches  map[int]*watchEntry
	nextID   int
	timers   timerHeap
	timerIdx map[int]*timerEntry
	cbs      map[int]func()

	wakeR int
	wakeW int

	closed bool
}

type watchEntry struct {
	id     int
	fd     int
	events dbus.WatchEvents
	cb     func(dbus.WatchEvents)
	active bool
}

// New creates a Loop backed by a fresh epoll instance and an internal
// self-pipe used by WakeUp to interrupt a blocking Run.
func New() (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("hostloop: epoll_create1: %w", err)
	}

	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("hostloop: pipe2: %w", err)
	}

	l := &Loop{
		epfd:     epfd,
		watches:  make(map[int]*watchEntry),
		timerIdx: make(map[int]*timerEntry),
		cbs:      make(map[int]func()),
		wakeR:    fds[0],
		wakeW:    fds[1],
	}

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, l.wakeR, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(l.wakeR)}); err != nil {
		_ = unix.Close(l.wakeR)
		_ = unix.Close(l.wakeW)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("hostloop: arm wakeup pipe: %w", err)
	}

	return l, nil
}

// Close releases the loop's epoll instance and wakeup pipe. Run must
// not be called again afterward.
func (l *Loop) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	_ = unix.Close(l.wakeR)
	_ = unix.Close(l.wakeW)
	return unix.Close(l.epfd)
}

func toEpollMask(e dbus.WatchEvents) uint32 {
	var mask uint32
	if e.Has(dbus.EventRead) {
		mask |= unix.EPOLLIN
	}
	if e.Has(dbus.EventWrite) {
		mask |= unix.EPOLLOUT
	}
	if e.Has(dbus.EventExcept) {
		mask |= unix.EPOLLERR | unix.EPOLLHUP
	}
	return mask
}

func fromEpollMask(mask uint32) dbus.WatchEvents {
	var e dbus.WatchEvents
	if mask&unix.EPOLLIN != 0 {
		e |= dbus.EventRead
	}
	if mask&unix.EPOLLOUT != 0 {
		e |= dbus.EventWrite
	}
	if mask&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		e |= dbus.EventExcept
	}
	return e
}

// AddWatch implements dbus.HostLoop.
func (l *Loop) AddWatch(fd int, events dbus.WatchEvents, cb func(dbus.WatchEvents)) dbus.WatchHandle {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	w := &watchEntry{id: id, fd: fd, events: events, cb: cb, active: true}
	l.watches[id] = w

	_ = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: toEpollMask(events), Fd: int32(id)})
	return id
}

// RemoveWatch implements dbus.HostLoop.
func (l *Loop) RemoveWatch(h dbus.WatchHandle) {
	id, ok := h.(int)
	if !ok {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.watches[id]
	if !ok {
		return
	}
	delete(l.watches, id)
	if w.active {
		_ = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, w.fd, nil)
	}
}

// AddTimer implements dbus.HostLoop.
func (l *Loop) AddTimer(period time.Duration, due time.Time, cb func()) dbus.TimerHandle {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	t := &timerEntry{id: id, period: period, due: due, cb: cb}
	l.timerIdx[id] = t
	heap.Push(&l.timers, t)
	return id
}

// RemoveTimer implements dbus.HostLoop.
func (l *Loop) RemoveTimer(h dbus.TimerHandle) {
	id, ok := h.(int)
	if !ok {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.timerIdx[id]
	if !ok {
		return
	}
	delete(l.timerIdx, id)
	if t.heapIdx >= 0 {
		heap.Remove(&l.timers, t.heapIdx)
	}
}

// AddCallback implements dbus.HostLoop: the callback runs once at the
// start of every Run iteration.
func (l *Loop) AddCallback(cb func()) dbus.CallbackHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.cbs[id] = cb
	return id
}

// RemoveCallback implements dbus.HostLoop.
func (l *Loop) RemoveCallback(h dbus.CallbackHandle) {
	id, ok := h.(int)
	if !ok {
		return
	}
	l.mu.Lock()
	delete(l.cbs, id)
	l.mu.Unlock()
}

// WakeUp implements dbus.HostLoop; it may be called from any goroutine.
func (l *Loop) WakeUp() {
	var b [1]byte
	_, _ = unix.Write(l.wakeW, b[:])
}

func (l *Loop) drainWakeup() {
	var buf [64]byte
	for {
		n, err := unix.Read(l.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}
