package godbusadapter

import (
	"strings"
	"sync"

	godbus "github.com/godbus/dbus/v5"
	"github.com/mordilloSan/go-logger/logger"

	core "github.com/mordilloSan/dbusd/dbus"
)

// registrar implements core.PathRegistrar by eavesdropping every raw
// message on the connection and dispatching method calls addressed to
// a registered path to that path's handler. godbus's reflection-based
// Export requires concretely typed Go methods known at compile time, so
// it cannot carry the dbus package's generic (object, message) vtable;
// eavesdropping lets one adapter connection serve an arbitrary,
// caller-declared interface table the way the integration's source
// serves it.
type registrar struct {
	conn     *godbus.Conn
	coreConn *core.Connection // set once by wrap(), after construction

	mu       sync.Mutex
	handlers map[godbus.ObjectPath]entry
	started  bool
}

type entry struct {
	onUnregister func()
	onMessage    func(msg *core.Message) core.DispatchResult
}

func newRegistrar(conn *godbus.Conn) *registrar {
	return &registrar{conn: conn, handlers: make(map[godbus.ObjectPath]entry)}
}

func (r *registrar) RegisterObjectPath(path string, onUnregister func(), onMessage func(msg *core.Message) core.DispatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[godbus.ObjectPath(path)] = entry{onUnregister: onUnregister, onMessage: onMessage}
	return nil
}

func (r *registrar) UnregisterObjectPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, godbus.ObjectPath(path))
}

func (r *registrar) ListChildren(path string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := strings.TrimSuffix(path, "/") + "/"
	seen := make(map[string]struct{})
	var children []string
	for p := range r.handlers {
		s := string(p)
		if !strings.HasPrefix(s, prefix) || s == path {
			continue
		}
		rest := strings.TrimPrefix(s, prefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		if rest == "" {
			continue
		}
		if _, ok := seen[rest]; !ok {
			seen[rest] = struct{}{}
			children = append(children, rest)
		}
	}
	return children
}

// start begins the eavesdrop loop on loop's callback queue; it is
// idempotent so connLibrary.InstallHooks can call it unconditionally.
func (r *registrar) start(loop core.HostLoop) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = true
	r.mu.Unlock()

	ch := make(chan *godbus.Message, 64)
	r.conn.Eavesdrop(ch)

	go func() {
		for msg := range ch {
			m := msg
			loop.AddCallback(func() { r.dispatch(m) })
			loop.WakeUp()
		}
	}()

	return nil
}

func (r *registrar) dispatch(raw *godbus.Message) {
	if raw.Type != godbus.TypeMethodCall {
		return
	}

	path, _ := raw.Headers[godbus.FieldPath].Value().(godbus.ObjectPath)

	r.mu.Lock()
	e, ok := r.handlers[path]
	r.mu.Unlock()
	if !ok {
		return
	}

	iface, _ := raw.Headers[godbus.FieldInterface].Value().(string)
	member, _ := raw.Headers[godbus.FieldMember].Value().(string)
	sender, _ := raw.Headers[godbus.FieldSender].Value().(string)

	msg := core.NewMessage(r.coreConn, iface, member, sender, raw.Body,
		func(body ...any) error { return r.reply(raw, body) },
		func(name, message string) error { return r.fail(raw, name, message) })

	switch e.onMessage(msg) {
	case core.NeedMemory:
		logger.Warnf("godbusadapter: no memory replying to %s.%s on %s", iface, member, path)
	}
}

func (r *registrar) reply(raw *godbus.Message, body []any) error {
	reply := godbus.NewMethodReturnMessage(raw)
	reply.Body = bodyToAny(body)
	return r.conn.Send(reply, nil)
}

func (r *registrar) fail(raw *godbus.Message, name, message string) error {
	reply := godbus.NewErrorMessage(raw, name, []interface{}{message})
	return r.conn.Send(reply, nil)
}

func bodyToAny(body []any) []interface{} {
	out := make([]interface{}, len(body))
	copy(out, body)
	return out
}
