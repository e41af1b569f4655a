package godbusadapter

import (
	"fmt"
	"net"
	"strings"

	"github.com/coreos/go-systemd/activation"
	godbus "github.com/godbus/dbus/v5"
	"github.com/mordilloSan/go-logger/logger"

	core "github.com/mordilloSan/dbusd/dbus"
)

// Listener implements core.Listener over a net.Listener, accepting one
// D-Bus peer connection per inbound socket connection. It understands
// the "unix:path=..." address form (§4.3's address syntax) and, when
// address is empty, falls back to systemd socket activation so the
// server can be started under a .socket unit with no address at all.
type Listener struct {
	ln net.Listener
}

// NewListener returns an unbound Listener; Listen binds it to an
// address (or to the socket-activation listener) and starts accepting.
func NewListener() *Listener { return &Listener{} }

func (l *Listener) Listen(address string, onAccept func(conn *core.Connection, loop core.HostLoop)) error {
	ln, err := l.bind(address)
	if err != nil {
		return err
	}
	l.ln = ln

	go l.acceptLoop(onAccept)
	return nil
}

func (l *Listener) bind(address string) (net.Listener, error) {
	if address == "" {
		listeners, err := activation.Listeners()
		if err != nil {
			return nil, fmt.Errorf("godbusadapter: socket activation: %w", err)
		}
		if len(listeners) != 1 {
			return nil, fmt.Errorf("godbusadapter: socket activation: expected exactly one socket, got %d", len(listeners))
		}
		return listeners[0], nil
	}

	path, ok := unixPath(address)
	if !ok {
		return nil, fmt.Errorf("godbusadapter: unsupported listen address %q", address)
	}
	return net.Listen("unix", path)
}

// unixPath extracts path from a D-Bus "unix:path=/some/path[,guid=...]"
// address, the only transport this listener implements server-side.
func unixPath(address string) (string, bool) {
	if !strings.HasPrefix(address, "unix:") {
		return "", false
	}
	for _, kv := range strings.Split(strings.TrimPrefix(address, "unix:"), ",") {
		if p, ok := strings.CutPrefix(kv, "path="); ok {
			return p, true
		}
	}
	return "", false
}

func (l *Listener) acceptLoop(onAccept func(conn *core.Connection, loop core.HostLoop)) {
	for {
		nc, err := l.ln.Accept()
		if err != nil {
			return
		}

		conn, err := godbus.NewConn(nc)
		if err != nil {
			logger.Warnf("godbusadapter: accepted connection rejected during handshake: %v", err)
			_ = nc.Close()
			continue
		}

		wrapped, loop, err := wrap(conn)
		if err != nil {
			logger.Warnf("godbusadapter: wrap accepted connection: %v", err)
			_ = conn.Close()
			continue
		}

		onAccept(wrapped, loop)
	}
}

func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}
