//go:build linux

package hostloop

import (
	"container/heap"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

const maxEvents = 64

// Run blocks, servicing registered callbacks, timers and I/O watches
// until stop is closed or an unrecoverable epoll error occurs. Each
// iteration: run every registered callback once, compute the wait
// deadline from the nearest due timer, block in epoll_wait, fire any
// watches that became ready, then fire any timers whose due time has
// elapsed (re-seating them at now+period).
func (l *Loop) Run(stop <-chan struct{}) error {
	var events [maxEvents]unix.EpollEvent

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		l.mu.Lock()
		for _, cb := range l.cbs {
			cb()
		}
		l.mu.Unlock()

		timeoutMs := l.nextTimeoutMillis()

		n, err := unix.EpollWait(l.epfd, events[:], timeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("hostloop: epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			id := int(events[i].Fd)
			if events[i].Fd == int32(l.wakeR) {
				l.drainWakeup()
				continue
			}
			l.fireWatch(id, events[i].Events)
		}

		l.fireDueTimers()
	}
}

func (l *Loop) nextTimeoutMillis() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.timers.Len() == 0 {
		return -1
	}
	d := time.Until(l.timers[0].due)
	if d <= 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms > int64(1<<31-1) {
		return 1<<31 - 1
	}
	return int(ms)
}

func (l *Loop) fireWatch(id int, mask uint32) {
	l.mu.Lock()
	w, ok := l.watches[id]
	l.mu.Unlock()
	if !ok {
		return
	}
	w.cb(fromEpollMask(mask))
}

func (l *Loop) fireDueTimers() {
	now := time.Now()
	for {
		l.mu.Lock()
		if l.timers.Len() == 0 || l.timers[0].due.After(now) {
			l.mu.Unlock()
			return
		}
		t := heap.Pop(&l.timers).(*timerEntry)
		t.due = now.Add(t.period)
		heap.Push(&l.timers, t)
		l.mu.Unlock()

		t.cb()
	}
}
