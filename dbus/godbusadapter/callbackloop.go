package godbusadapter

import (
	"sync"
	"time"

	core "github.com/mordilloSan/dbusd/dbus"
)

// callbackLoop is the minimal core.HostLoop this adapter hands back from
// Dial/Bus. godbus does not expose the underlying connection's file
// descriptor, so there is nothing for AddWatch/RemoveWatch to attach to
// here; a caller that also needs real I/O multiplexing (e.g. the
// hostloop package's epoll loop) runs it alongside this one and only
// relies on this loop for running the dispatch callbacks godbusadapter
// itself schedules. AddCallback queues cb to run exactly once, not once
// per iteration; the registrar uses it as a one-shot dispatch queue.
type callbackLoop struct {
	mu      sync.Mutex
	nextID  int
	timers  map[int]*time.Timer
	pending chan func()
}

func newCallbackLoop() *callbackLoop {
	l := &callbackLoop{
		timers:  make(map[int]*time.Timer),
		pending: make(chan func(), 256),
	}
	go l.run()
	return l
}

func (l *callbackLoop) run() {
	for cb := range l.pending {
		cb()
	}
}

func (l *callbackLoop) AddWatch(fd int, events core.WatchEvents, cb func(core.WatchEvents)) core.WatchHandle {
	return -1
}

func (l *callbackLoop) RemoveWatch(h core.WatchHandle) {}

func (l *callbackLoop) AddTimer(period time.Duration, due time.Time, cb func()) core.TimerHandle {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.mu.Unlock()

	delay := time.Until(due)
	if delay < 0 {
		delay = 0
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		l.pending <- cb
		l.pending <- func() { t.Reset(period) }
	})

	l.mu.Lock()
	l.timers[id] = t
	l.mu.Unlock()

	return id
}

func (l *callbackLoop) RemoveTimer(h core.TimerHandle) {
	id, ok := h.(int)
	if !ok {
		return
	}
	l.mu.Lock()
	t, ok := l.timers[id]
	delete(l.timers, id)
	l.mu.Unlock()
	if ok {
		t.Stop()
	}
}

func (l *callbackLoop) AddCallback(cb func()) core.CallbackHandle {
	l.pending <- cb
	return nil
}

func (l *callbackLoop) RemoveCallback(h core.CallbackHandle) {}

func (l *callbackLoop) WakeUp() {}
