package dbus

import "time"

// LibTimeout is what the bridge needs from a single D-Bus library
// timeout object: its current interval in milliseconds, whether it is
// enabled, and a way to hand the firing back to the library.
type LibTimeout interface {
	IntervalMillis() int
	Enabled() bool
	Handle()
}

type timeoutRecord struct {
	lib    LibTimeout
	handle TimerHandle // nil when disabled
}

// TimeoutBridge translates a D-Bus library's timeout lifecycle (add,
// remove, toggle) into host-loop periodic timers. The host timer's
// period is ceil(interval_ms / 1000) seconds: the rounding is always up,
// never down, so the bridge never fires earlier than the D-Bus-requested
// interval.
type TimeoutBridge struct {
	loop    HostLoop
	records map[LibTimeout]*timeoutRecord
	now     func() time.Time
}

// NewTimeoutBridge creates a bridge that registers host-loop timers via
// loop. now defaults to time.Now; tests may override it.
func NewTimeoutBridge(loop HostLoop) *TimeoutBridge {
	return &TimeoutBridge{
		loop:    loop,
		records: make(map[LibTimeout]*timeoutRecord),
		now:     time.Now,
	}
}

// Period returns the host-loop timer period for a D-Bus timeout interval
// given in milliseconds: ceil(intervalMs/1000) seconds, with a 0ms
// interval still yielding a 1-second period.
func Period(intervalMs int) time.Duration {
	if intervalMs <= 0 {
		return time.Second
	}
	seconds := (intervalMs-1)/1000 + 1
	return time.Duration(seconds) * time.Second
}

func (b *TimeoutBridge) AddTimeout(t LibTimeout) error {
	period := Period(t.IntervalMillis())
	due := b.now().Add(period)

	rec := &timeoutRecord{lib: t}
	handle := b.loop.AddTimer(period, due, t.Handle)

	if t.Enabled() {
		rec.handle = handle
	} else {
		b.loop.RemoveTimer(handle)
	}

	b.records[t] = rec
	return nil
}

func (b *TimeoutBridge) RemoveTimeout(t LibTimeout) {
	rec, ok := b.records[t]
	if !ok {
		return
	}
	if rec.handle != nil {
		b.loop.RemoveTimer(rec.handle)
	}
	delete(b.records, t)
}

// ToggleTimeout is called after t's Enabled() value, or its interval,
// changes. Disabling removes the host timer but keeps the record;
// enabling re-reads the interval and re-seats the due time, then
// registers a new host timer in place of any existing one.
func (b *TimeoutBridge) ToggleTimeout(t LibTimeout) {
	rec, ok := b.records[t]
	if !ok {
		return
	}

	if t.Enabled() {
		period := Period(t.IntervalMillis())
		due := b.now().Add(period)
		if rec.handle != nil {
			b.loop.RemoveTimer(rec.handle)
		}
		rec.handle = b.loop.AddTimer(period, due, t.Handle)
	} else if rec.handle != nil {
		b.loop.RemoveTimer(rec.handle)
		rec.handle = nil
	}
}

// ActiveCount reports the number of timeouts currently present in the
// host loop's active list.
func (b *TimeoutBridge) ActiveCount() int {
	n := 0
	for _, rec := range b.records {
		if rec.handle != nil {
			n++
		}
	}
	return n
}
