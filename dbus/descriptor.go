package dbus

// Standard interface names the registry dispatches specially; no other
// interface name is ever hard-coded in the dispatcher (§4.5, §9).
const (
	IntrospectableInterface = "org.freedesktop.DBus.Introspectable"
	PropertiesInterface     = "org.freedesktop.DBus.Properties"
)

// Direction distinguishes a method argument's direction for introspection.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "out"
	}
	return "in"
}

// Access describes whether a property may be read, written, or both.
type Access int

const (
	Read Access = iota
	Write
	ReadWrite
)

func (a Access) String() string {
	switch a {
	case Write:
		return "write"
	case ReadWrite:
		return "readwrite"
	default:
		return "read"
	}
}

// Arg is one method or signal argument, carried only for introspection —
// actual argument decoding is delegated to the underlying D-Bus library.
type Arg struct {
	Name      string
	Type      string // D-Bus type signature, e.g. "s", "a{sv}"
	Direction Direction
}

// Marshaller decodes a method call's arguments from msg, invokes the
// service logic, encodes and sends the reply, and reports the dispatch
// result. It is the Go analogue of a code-generated NihDBusMarshaller.
type Marshaller func(o *Object, msg *Message) DispatchResult

// Method is one exported method: its D-Bus name, its argument list (for
// introspection), and the marshaller that handles a call to it.
type Method struct {
	Name       string
	Args       []Arg
	Marshaller Marshaller
}

// Signal is one declared signal: name plus argument list (signals have
// no direction — they only ever go out).
type Signal struct {
	Name string
	Args []Arg
}

// Property is one declared property: name, type signature, and access.
type Property struct {
	Name   string
	Type   string
	Access Access
}

// Interface is one named interface an object exports: a D-Bus interface
// name plus its methods, signals and properties. Interfaces are
// declared, not discovered — the open set of interfaces is exactly
// whatever the caller puts in this table (§9).
type Interface struct {
	Name       string
	Methods    []Method
	Signals    []Signal
	Properties []Property
}

// HasProperties reports whether any interface in table declares at
// least one property; introspection advertises the Properties interface
// iff this is true.
func HasProperties(table []Interface) bool {
	for _, iface := range table {
		if len(iface.Properties) > 0 {
			return true
		}
	}
	return false
}
