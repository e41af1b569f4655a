package dbus

import "testing"

// fakeListener is a Listener double that lets a test simulate inbound
// connections arriving by calling deliver directly.
type fakeListener struct {
	onAccept func(conn *Connection, loop HostLoop)
	closed   bool
}

func (l *fakeListener) Listen(address string, onAccept func(conn *Connection, loop HostLoop)) error {
	l.onAccept = onAccept
	return nil
}

func (l *fakeListener) Close() error {
	l.closed = true
	return nil
}

func (l *fakeListener) deliver(conn *Connection, loop HostLoop) {
	l.onAccept(conn, loop)
}

func TestServer_AcceptsWhenPredicateNil(t *testing.T) {
	lst := &fakeListener{}
	defer delete(bindings, "conn-a")

	srv, err := NewServer(lst, "unix:path=/tmp/x", nil, nil, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	lst.deliver(NewConnection("conn-a", &fakeLibrary{}, nil), newFakeLoop())

	if srv.Accepted() != 1 {
		t.Fatalf("Accepted() = %d, want 1", srv.Accepted())
	}
	if RefCount("conn-a") != 1 {
		t.Fatalf("RefCount = %d, want 1", RefCount("conn-a"))
	}
}

func TestServer_RejectsWhenPredicateFalse(t *testing.T) {
	lst := &fakeListener{}
	defer delete(bindings, "conn-b")

	reject := func(conn *Connection) bool { return false }
	srv, err := NewServer(lst, "unix:path=/tmp/x", reject, nil, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	lst.deliver(NewConnection("conn-b", &fakeLibrary{}, nil), newFakeLoop())

	if srv.Accepted() != 0 {
		t.Fatalf("Accepted() = %d, want 0", srv.Accepted())
	}
	if RefCount("conn-b") != 0 {
		t.Fatalf("RefCount = %d, want 0 for rejected connection", RefCount("conn-b"))
	}
}

func TestServer_DisconnectReleasesAcceptedConnection(t *testing.T) {
	lst := &fakeListener{}
	defer delete(bindings, "conn-c")

	var released int
	srv, err := NewServer(lst, "unix:path=/tmp/x", nil, nil, func() { released++ })
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	lib := &fakeLibrary{}
	lst.deliver(NewConnection("conn-c", lib, nil), newFakeLoop())
	lib.fireDisconnect()

	if released != 1 {
		t.Fatalf("release called %d times, want 1", released)
	}
	if RefCount("conn-c") != 0 {
		t.Fatalf("RefCount after disconnect = %d, want 0", RefCount("conn-c"))
	}

	if err := srv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !lst.closed {
		t.Fatalf("listener not closed")
	}
}
