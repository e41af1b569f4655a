package dbus

// LibWatch is what the watch/timeout bridge needs from a single D-Bus
// library watch object: a file descriptor, the set of events it wants
// observed, whether it is currently enabled, and a way to hand fired
// events back into the library for dispatch. Any conforming D-Bus
// client library that exposes add/remove/toggle watch hooks (the
// traditional libdbus DBusWatch model) can be adapted to this.
type LibWatch interface {
	Fd() int
	Flags() WatchEvents
	Enabled() bool
	// Handle is called by the bridge when the host loop reports fired
	// events on this watch's fd; flags has already been translated
	// from host-loop to D-Bus semantics.
	Handle(flags WatchEvents)
}

// watchRecord pairs one LibWatch with the single host-loop I/O watch
// that represents it. The host watch is present in the loop's active
// list iff the D-Bus watch is enabled; disabling retains the record but
// removes the host watch and clears the handle, so a later enable
// registers a new host watch.
type watchRecord struct {
	lib    LibWatch
	handle WatchHandle // nil when disabled
}

// WatchBridge translates a D-Bus library's watch lifecycle (add, remove,
// toggle) into host-loop I/O watches. It implements component C3 of the
// integration core for the watch half of the bridge; TimeoutBridge
// implements the other half.
type WatchBridge struct {
	loop    HostLoop
	records map[LibWatch]*watchRecord
}

// NewWatchBridge creates a bridge that registers host-loop watches via
// loop.
func NewWatchBridge(loop HostLoop) *WatchBridge {
	return &WatchBridge{
		loop:    loop,
		records: make(map[LibWatch]*watchRecord),
	}
}

// hostEvents translates D-Bus READABLE/WRITABLE flags into host-loop
// READ/WRITE/EXCEPT. Error conditions are always observed regardless of
// what the D-Bus watch asked for.
func hostEvents(flags WatchEvents) WatchEvents {
	events := EventExcept
	if flags.Has(EventRead) {
		events |= EventRead
	}
	if flags.Has(EventWrite) {
		events |= EventWrite
	}
	return events
}

// AddWatch is called by the D-Bus library when it wants to observe w's
// file descriptor. A host-loop watch is created unconditionally; if w
// starts disabled, the watch is immediately removed from the active list
// so that membership invariant (enabled iff active) holds from the
// start.
func (b *WatchBridge) AddWatch(w LibWatch) error {
	rec := &watchRecord{lib: w}
	handle := b.loop.AddWatch(w.Fd(), hostEvents(w.Flags()), func(fired WatchEvents) {
		w.Handle(translateFired(fired))
	})

	if w.Enabled() {
		rec.handle = handle
	} else {
		b.loop.RemoveWatch(handle)
	}

	b.records[w] = rec
	return nil
}

// translateFired maps host-loop READ/WRITE/EXCEPT back to D-Bus
// READABLE/WRITABLE/ERROR for delivery to the library's handle routine.
func translateFired(fired WatchEvents) WatchEvents {
	var flags WatchEvents
	if fired.Has(EventRead) {
		flags |= EventRead
	}
	if fired.Has(EventWrite) {
		flags |= EventWrite
	}
	if fired.Has(EventExcept) {
		flags |= EventExcept
	}
	return flags
}

// RemoveWatch is called by the D-Bus library when w is being destroyed;
// the host watch, enabled or not, is removed for good.
func (b *WatchBridge) RemoveWatch(w LibWatch) {
	rec, ok := b.records[w]
	if !ok {
		return
	}
	if rec.handle != nil {
		b.loop.RemoveWatch(rec.handle)
	}
	delete(b.records, w)
}

// ToggleWatch is called by the D-Bus library after w's Enabled() value
// changes. Disabling removes the host watch from the loop but keeps the
// record; enabling registers a new host watch for the same fd and flags.
// The earlier host watch is not reused.
func (b *WatchBridge) ToggleWatch(w LibWatch) {
	rec, ok := b.records[w]
	if !ok {
		return
	}

	if w.Enabled() {
		if rec.handle == nil {
			rec.handle = b.loop.AddWatch(w.Fd(), hostEvents(w.Flags()), func(fired WatchEvents) {
				w.Handle(translateFired(fired))
			})
		}
	} else if rec.handle != nil {
		b.loop.RemoveWatch(rec.handle)
		rec.handle = nil
	}
}

// ActiveCount reports the number of watches currently present in the
// host loop's active list; exposed for tests asserting the enabled iff
// active invariant.
func (b *WatchBridge) ActiveCount() int {
	n := 0
	for _, rec := range b.records {
		if rec.handle != nil {
			n++
		}
	}
	return n
}
