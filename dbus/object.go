package dbus

import "fmt"

// PathRegistrar is the portion of the D-Bus library's path-tree API
// that the object registry depends on: registering a (path, vtable)
// pair, unregistering it, and listing immediately-registered child path
// components for introspection. The vtable's two entries are
// "unregister" and "message", matching the source's
// DBusObjectPathVTable.
type PathRegistrar interface {
	RegisterObjectPath(path string, onUnregister func(), onMessage func(msg *Message) DispatchResult) error
	UnregisterObjectPath(path string)
	ListChildren(path string) []string
}

// Object is the triple (connection, path, interface table) plus an
// opaque user data value and a registered flag, matching §3's data
// model. While registered is true the object is discoverable via the
// library's path tree on Conn; destruction flips registered to false
// before detaching.
type Object struct {
	Conn       *Connection
	Path       string
	Interfaces []Interface
	UserData   any

	registered bool
	registrar  PathRegistrar
}

// NewObject allocates an object, registers (path, vtable) with conn's
// registrar, and returns it. On success Registered() is true; the
// caller is responsible for calling Release() when done with it (or
// relying on the library's own unregister hook if the connection goes
// away first).
func NewObject(conn *Connection, path string, interfaces []Interface, userData any) (*Object, error) {
	o := &Object{
		Conn:       conn,
		Path:       path,
		Interfaces: interfaces,
		UserData:   userData,
		registrar:  conn.Registrar,
	}

	if err := o.registrar.RegisterObjectPath(path, o.handleUnregister, o.handleMessage); err != nil {
		return nil, fmt.Errorf("dbus: register object %s: %w", path, err)
	}

	o.registered = true
	return o, nil
}

// Registered reports whether the object is currently reachable via the
// connection's path tree.
func (o *Object) Registered() bool { return o.registered }

// Release unregisters the object from the library if it is still
// registered. Calling it on an already-unregistered object is a no-op,
// matching the double-unregister idempotence invariant.
func (o *Object) Release() {
	if !o.registered {
		return
	}
	o.registered = false
	o.registrar.UnregisterObjectPath(o.Path)
}

// handleUnregister is invoked by the library when it tears the path
// down itself (e.g. the connection is gone). It must clear registered
// first so a concurrent Release() call from the owner is a no-op.
func (o *Object) handleUnregister() {
	if !o.registered {
		return
	}
	o.registered = false
}

// handleMessage is the vtable's message entry: it implements the
// dispatch order from §4.5 — Introspect is always handled internally,
// Properties.{Get,Set,GetAll} are always left not-yet-handled (the
// deliberate non-goal), otherwise the interface table is scanned for a
// matching (interface, method) pair and its marshaller invoked.
//
// The dispatcher never touches o again after a marshaller returns, so a
// marshaller that releases o (or otherwise destroys it) during its own
// invocation is safe.
func (o *Object) handleMessage(msg *Message) DispatchResult {
	if msg.Interface == IntrospectableInterface && msg.Member == "Introspect" {
		xml, err := o.Introspect()
		if err != nil {
			return NeedMemory
		}
		return msg.Reply(xml)
	}

	if msg.Interface == PropertiesInterface {
		switch msg.Member {
		case "Get", "Set", "GetAll":
			return NotYetHandled
		}
	}

	for _, iface := range o.Interfaces {
		if iface.Name != msg.Interface {
			continue
		}
		for _, method := range iface.Methods {
			if method.Name == msg.Member {
				return method.Marshaller(o, msg)
			}
		}
	}

	return NotYetHandled
}
