package dbus

import "fmt"

// ConnectHandler is consulted for every inbound connection a Server
// accepts; returning false drops the connection before any setup runs.
// A nil ConnectHandler accepts every connection, matching "if absent"
// in §4.3.
type ConnectHandler func(conn *Connection) bool

// Listener is the library-adapter side of Server Setup: it knows how to
// bind a listening endpoint at address and deliver accepted connections,
// each paired with the HostLoop its hooks should install on.
type Listener interface {
	// Listen binds address and begins delivering accepted connections to
	// onAccept until Close is called. onAccept is invoked once per
	// inbound connection, synchronously with however the adapter drives
	// its own accept loop.
	Listen(address string, onAccept func(conn *Connection, loop HostLoop)) error

	// Close stops accepting new connections.
	Close() error
}

// Server holds the two data-slot-held handlers described in §3: the
// connect predicate gating which inbound connections are kept, and the
// disconnect handler run via the standard per-connection Setup. The
// slot identifiers themselves are an implementation detail of the
// source's data-slot API with no Go analogue; this struct simply holds
// the values directly.
type Server struct {
	listener     Listener
	onConnect    ConnectHandler
	onDisconnect DisconnectHandler
	release      func()

	accepted int
}

// NewServer binds address via listener and returns a Server that runs
// the standard per-connection setup (4.2) on every connection onConnect
// accepts. onConnect may be nil to accept everything.
func NewServer(listener Listener, address string, onConnect ConnectHandler, onDisconnect DisconnectHandler, release func()) (*Server, error) {
	s := &Server{
		listener:     listener,
		onConnect:    onConnect,
		onDisconnect: onDisconnect,
		release:      release,
	}

	if err := listener.Listen(address, s.handleAccept); err != nil {
		return nil, fmt.Errorf("dbus: server %s: %w", address, err)
	}

	return s, nil
}

// handleAccept is the Listener's onAccept callback: it consults
// onConnect, and for every connection kept, runs Setup with the
// server's stored onDisconnect, taking one additional reference as
// described in §4.3.
func (s *Server) handleAccept(conn *Connection, loop HostLoop) {
	if s.onConnect != nil && !s.onConnect(conn) {
		return
	}

	s.accepted++

	// A failure here means the library's watch/timeout hooks could not
	// be installed on the accepted connection; there is no reply path
	// to report it to the remote peer, so it is silently dropped.
	_ = Setup(loop, conn.Key, conn.Lib, s.onDisconnect, s.release)
}

// Accepted reports how many inbound connections have been kept (passed
// onConnect) since the server was created.
func (s *Server) Accepted() int { return s.accepted }

// Close stops the server from accepting further connections.
func (s *Server) Close() error { return s.listener.Close() }
