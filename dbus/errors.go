// Package dbus implements the D-Bus integration core: connection and
// server setup against the host main loop, the watch/timeout bridge,
// per-connection object registration and dispatch, and introspection.
//
// It delegates authentication, transport negotiation and argument
// marshalling to github.com/godbus/dbus/v5; this package owns only the
// glue between that library and an external cooperative main loop.
package dbus

import (
	"errors"
	"fmt"
)

// ErrFailed is the fallback D-Bus error name used when opening a
// connection (Connect, Bus) fails and no more specific D-Bus error name
// is available.
const ErrFailed = "org.freedesktop.DBus.Error.Failed"

// ErrNoMemory is the standard D-Bus error name for an allocation
// failure. Setup does not raise it: its failures are returned as plain
// wrapped errors, with no D-Bus name.
const ErrNoMemory = "org.freedesktop.DBus.Error.NoMemory"

// Error is a D-Bus-named error: it carries the reverse-DNS error name
// that gets mirrored back to a remote caller as a method error reply,
// alongside a human-readable message. It is distinguishable from a
// plain error via AsError, standing in for the
// source's fixed NIH_DBUS_ERROR sentinel code.
type Error struct {
	Name    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// NewError raises a D-Bus-named error with a literal message.
func NewError(name, message string) *Error {
	return &Error{Name: name, Message: message}
}

// NewErrorf raises a D-Bus-named error with a printf-style message,
// mirroring nih_dbus_error_raise_printf.
func NewErrorf(name, format string, args ...any) *Error {
	return &Error{Name: name, Message: fmt.Sprintf(format, args...)}
}

// AsError reports whether err is (or wraps) a *Error, returning it if so.
func AsError(err error) (*Error, bool) {
	var dbusErr *Error
	ok := errors.As(err, &dbusErr)
	return dbusErr, ok
}

// DispatchResult is the library-defined enumeration returned by message
// callbacks: handled, not-yet-handled (let another filter or the
// library's default error reply take it), or need-memory (the library
// should retry once resources free up).
type DispatchResult int

const (
	NotYetHandled DispatchResult = iota
	Handled
	NeedMemory
)

func (r DispatchResult) String() string {
	switch r {
	case Handled:
		return "handled"
	case NeedMemory:
		return "need-memory"
	default:
		return "not-yet-handled"
	}
}
