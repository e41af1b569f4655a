package dbus

import "time"

// fakeLoop is an in-memory HostLoop double used by the bridge tests; it
// tracks active watches/timers exactly as a real loop's "active list"
// would, without touching any real fd or timer.
type fakeLoop struct {
	watches map[int]*fakeWatchEntry
	timers  map[int]*fakeTimerEntry
	nextID  int
	wokenUp int
}

type fakeWatchEntry struct {
	fd     int
	events WatchEvents
	cb     func(WatchEvents)
}

type fakeTimerEntry struct {
	period time.Duration
	due    time.Time
	cb     func()
}

func newFakeLoop() *fakeLoop {
	return &fakeLoop{
		watches: make(map[int]*fakeWatchEntry),
		timers:  make(map[int]*fakeTimerEntry),
	}
}

func (l *fakeLoop) AddWatch(fd int, events WatchEvents, cb func(WatchEvents)) WatchHandle {
	l.nextID++
	id := l.nextID
	l.watches[id] = &fakeWatchEntry{fd: fd, events: events, cb: cb}
	return id
}

func (l *fakeLoop) RemoveWatch(h WatchHandle) {
	delete(l.watches, h.(int))
}

func (l *fakeLoop) AddTimer(period time.Duration, due time.Time, cb func()) TimerHandle {
	l.nextID++
	id := l.nextID
	l.timers[id] = &fakeTimerEntry{period: period, due: due, cb: cb}
	return id
}

func (l *fakeLoop) RemoveTimer(h TimerHandle) {
	delete(l.timers, h.(int))
}

func (l *fakeLoop) AddCallback(cb func()) CallbackHandle { return nil }
func (l *fakeLoop) RemoveCallback(h CallbackHandle)      {}

func (l *fakeLoop) WakeUp() { l.wokenUp++ }

func (l *fakeLoop) watchesOnFd(fd int) int {
	n := 0
	for _, w := range l.watches {
		if w.fd == fd {
			n++
		}
	}
	return n
}

// fakeWatch is a minimal LibWatch double.
type fakeWatch struct {
	fd      int
	flags   WatchEvents
	enabled bool
	handled []WatchEvents
}

func (w *fakeWatch) Fd() int            { return w.fd }
func (w *fakeWatch) Flags() WatchEvents { return w.flags }
func (w *fakeWatch) Enabled() bool      { return w.enabled }
func (w *fakeWatch) Handle(flags WatchEvents) {
	w.handled = append(w.handled, flags)
}

// fakeTimeout is a minimal LibTimeout double.
type fakeTimeout struct {
	intervalMs int
	enabled    bool
	fired      int
}

func (t *fakeTimeout) IntervalMillis() int { return t.intervalMs }
func (t *fakeTimeout) Enabled() bool       { return t.enabled }
func (t *fakeTimeout) Handle()             { t.fired++ }
