package dbus

import "fmt"

// DisconnectHandler is invoked when a connection's local Disconnected
// signal fires, after which the integration releases one reference on
// the connection (see Setup).
type DisconnectHandler func()

// Library is the slice of "the D-Bus library contract" (external
// interfaces, §6) that Connection Setup depends on: installing the
// watch/timeout/wakeup hook set exactly once per connection, and
// appending one disconnect filter per Setup call. A concrete
// implementation over github.com/godbus/dbus/v5 lives in
// dbus/godbusadapter.
type Library interface {
	// InstallHooks wires the library's watch, timeout and wakeup
	// functions into loop. Called at most once per connection.
	InstallHooks(loop HostLoop) error

	// AddDisconnectFilter installs a message filter matching the local
	// Disconnected signal. onMatch is called when it fires; the filter
	// itself must return "not yet handled" so other filters installed
	// by other Setup calls on the same connection also run.
	AddDisconnectFilter(onMatch func()) error
}

// mainLoopBinding is the integration's analogue of the source's
// main_loop_slot data-slot entry: it exists iff the connection has been
// set up, and tracks how many disconnect filters (and therefore how
// many outstanding references) have been layered onto it.
type mainLoopBinding struct {
	refs int
}

// bindings maps a connection identity (in production, the underlying
// *dbus.Conn pointer) to its main-loop binding. Data slots in the
// source are process-wide; this map plays the same role. No locking is
// used or needed — §5 of the specification assumes a single-threaded
// cooperative caller.
var bindings = make(map[any]*mainLoopBinding)

// Setup wires conn (identified by key) into loop. It is idempotent over
// the loop binding: calling it twice for the same key installs the
// watch/timeout/wakeup hooks exactly once. It is additive over
// disconnect filters: every call appends its own filter and its own
// reference, so onDisconnect fires once per Setup call, each firing
// releasing exactly one reference via release.
func Setup(loop HostLoop, key any, lib Library, onDisconnect DisconnectHandler, release func()) error {
	b, exists := bindings[key]
	if !exists {
		if err := lib.InstallHooks(loop); err != nil {
			return fmt.Errorf("dbus: setup %v: %w", key, err)
		}
		b = &mainLoopBinding{}
		bindings[key] = b
	}

	b.refs++

	return lib.AddDisconnectFilter(func() {
		if onDisconnect != nil {
			onDisconnect()
		}
		b.refs--
		if b.refs == 0 {
			forgetBinding(key)
		}
		if release != nil {
			release()
		}
	})
}

// RefCount reports the current reference count recorded against key's
// main-loop binding, or 0 if the key was never set up. Exposed for
// tests asserting the filter/reference balance invariant.
func RefCount(key any) int {
	b, ok := bindings[key]
	if !ok {
		return 0
	}
	return b.refs
}

// forgetBinding removes key's main-loop binding entirely; called when
// the last disconnect filter on the connection has released its
// reference (the connection is then disposed), so the binding map does
// not grow without bound across a process's lifetime.
func forgetBinding(key any) {
	delete(bindings, key)
}

// BusKind names one of the well-known buses connect/bus can join.
type BusKind int

const (
	SystemBus BusKind = iota
	SessionBus
	StarterBus
)

func (k BusKind) String() string {
	switch k {
	case SessionBus:
		return "session"
	case StarterBus:
		return "starter"
	default:
		return "system"
	}
}

// Connection is the integration's handle for a D-Bus connection: the
// identity used to key the shared binding table (§3's "library-provided
// data slot"), the Library implementation that drives its watch/timeout
// hooks and disconnect filter, and the PathRegistrar used to register
// Objects on it. Concrete connections are produced by a library adapter
// (dbus/godbusadapter) wrapping a real *dbus.Conn; core code never
// dials anything itself.
type Connection struct {
	Key       any
	Lib       Library
	Registrar PathRegistrar
}

// NewConnection wraps an already-dialed (key, lib, registrar) triple. It
// does not itself perform Setup — callers that want the watch/timeout
// hooks installed and a disconnect filter registered call Connect or Bus
// below, or Setup directly for lower-level control.
func NewConnection(key any, lib Library, registrar PathRegistrar) *Connection {
	return &Connection{Key: key, Lib: lib, Registrar: registrar}
}

// Dialer is implemented by a library adapter: it knows how to open a
// peer-to-peer connection at an address, or join one of the well-known
// buses, and hand back a Connection plus the HostLoop its watches and
// timers should be installed on.
type Dialer interface {
	Dial(address string) (*Connection, HostLoop, error)
	Bus(kind BusKind) (*Connection, HostLoop, error)
}

// Connect opens a peer-to-peer connection via dialer and wires it into
// its host loop with Setup, installing onDisconnect as described there.
func Connect(dialer Dialer, address string, onDisconnect DisconnectHandler, release func()) (*Connection, error) {
	conn, loop, err := dialer.Dial(address)
	if err != nil {
		if dbusErr, ok := AsError(err); ok {
			return nil, dbusErr
		}
		return nil, NewErrorf(ErrFailed, "connect %s: %v", address, err)
	}
	if err := Setup(loop, conn.Key, conn.Lib, onDisconnect, release); err != nil {
		return nil, err
	}
	return conn, nil
}

// Bus joins one of the well-known buses via dialer and wires it into
// its host loop with Setup. The bus connection's exit-on-disconnect
// behavior is the dialer's responsibility to disable — the process must
// survive bus loss.
func Bus(dialer Dialer, kind BusKind, onDisconnect DisconnectHandler, release func()) (*Connection, error) {
	conn, loop, err := dialer.Bus(kind)
	if err != nil {
		if dbusErr, ok := AsError(err); ok {
			return nil, dbusErr
		}
		return nil, NewErrorf(ErrFailed, "bus %s: %v", kind, err)
	}
	if err := Setup(loop, conn.Key, conn.Lib, onDisconnect, release); err != nil {
		return nil, err
	}
	return conn, nil
}
