package dbus

// Message is the per-dispatch wrapper handed to a Marshaller: it pairs
// the connection with the incoming call's addressing (interface,
// member, sender) and body, plus a reply hook bound by whatever adapter
// delivered the message. It exists for the lifetime of one dispatch —
// §4.5's "build a per-message wrapper holding (connection, message)...
// invoke the marshaller... release the wrapper".
type Message struct {
	Conn      *Connection
	Interface string
	Member    string
	Sender    string
	Body      []any

	reply func(body ...any) error
	fail  func(name, message string) error
}

// NewMessage constructs a Message; reply and fail are supplied by the
// library adapter delivering it and may be nil in tests that never call
// Reply/Fail.
func NewMessage(conn *Connection, iface, member, sender string, body []any, reply func(body ...any) error, fail func(name, message string) error) *Message {
	return &Message{
		Conn:      conn,
		Interface: iface,
		Member:    member,
		Sender:    sender,
		Body:      body,
		reply:     reply,
		fail:      fail,
	}
}

// Reply sends a method-return reply with the given body and reports
// Handled, or NeedMemory if the reply could not be constructed/sent.
func (m *Message) Reply(body ...any) DispatchResult {
	if m.reply == nil {
		return NeedMemory
	}
	if err := m.reply(body...); err != nil {
		return NeedMemory
	}
	return Handled
}

// Fail sends a method-error reply named name and reports Handled, or
// NeedMemory if the error reply could not be sent.
func (m *Message) Fail(name, message string) DispatchResult {
	if m.fail == nil {
		return NeedMemory
	}
	if err := m.fail(name, message); err != nil {
		return NeedMemory
	}
	return Handled
}

// FailErr sends err as a method-error reply: if err is a *Error, its
// Name/Message are mirrored verbatim; otherwise it is reported under
// ErrFailed.
func (m *Message) FailErr(err error) DispatchResult {
	if dbusErr, ok := AsError(err); ok {
		return m.Fail(dbusErr.Name, dbusErr.Message)
	}
	return m.Fail(ErrFailed, err.Error())
}
