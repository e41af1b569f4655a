package dbus

import "time"

// WatchEvents is a bitmask of I/O readiness conditions, translated
// between the D-Bus library's READABLE/WRITABLE/ERROR flags and the
// host loop's READ/WRITE/EXCEPT primitives.
type WatchEvents int

const (
	EventRead WatchEvents = 1 << iota
	EventWrite
	EventExcept
)

func (e WatchEvents) Has(f WatchEvents) bool { return e&f != 0 }

// WatchHandle and TimerHandle are opaque tokens returned by a HostLoop
// implementation; the bridge never inspects them, only passes them back
// to Remove*.
type WatchHandle any
type TimerHandle any
type CallbackHandle any

// HostLoop is the external main loop's contract, consumed by the
// watch/timeout bridge and by connection setup's per-iteration dispatch
// callback. Registered I/O watches and timers are active until removed;
// removal is permanent, and making one active again means adding it
// anew — see the hostloop package for a reference implementation.
type HostLoop interface {
	// AddWatch registers an I/O watch for fd observing events; cb is
	// invoked with the events that actually fired. The watch starts
	// active (in the loop's active list).
	AddWatch(fd int, events WatchEvents, cb func(fired WatchEvents)) WatchHandle

	// RemoveWatch removes h from the active list permanently.
	RemoveWatch(h WatchHandle)

	// AddTimer registers a periodic timer with the given period that
	// next fires at due. The timer starts active.
	AddTimer(period time.Duration, due time.Time, cb func()) TimerHandle

	// RemoveTimer removes h from the active list permanently.
	RemoveTimer(h TimerHandle)

	// AddCallback registers cb to run once per loop iteration, for as
	// long as the returned handle is not passed to RemoveCallback.
	AddCallback(cb func()) CallbackHandle

	// RemoveCallback unregisters a callback added via AddCallback.
	RemoveCallback(h CallbackHandle)

	// WakeUp interrupts any blocking wait the loop is currently
	// performing, so newly queued outbound messages are flushed
	// promptly rather than waiting for the next natural wake.
	WakeUp()
}
