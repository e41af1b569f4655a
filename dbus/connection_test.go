package dbus

import "testing"

// fakeLibrary is a Library double that records how many times hooks
// were installed and lets the test fire all installed filters at once,
// simulating a single incoming Disconnected signal being delivered to
// every filter on the connection.
type fakeLibrary struct {
	installs int
	filters  []func()
}

func (l *fakeLibrary) InstallHooks(loop HostLoop) error {
	l.installs++
	return nil
}

func (l *fakeLibrary) AddDisconnectFilter(onMatch func()) error {
	l.filters = append(l.filters, onMatch)
	return nil
}

func (l *fakeLibrary) fireDisconnect() {
	for _, f := range l.filters {
		f()
	}
}

func TestSetup_IdempotentHooksAdditiveFilters(t *testing.T) {
	lib := &fakeLibrary{}
	loop := newFakeLoop()
	key := "conn-1"
	defer delete(bindings, key)

	var handlerCalls int
	onDisconnect := func() { handlerCalls++ }

	var released int
	release := func() { released++ }

	if err := Setup(loop, key, lib, onDisconnect, release); err != nil {
		t.Fatalf("first Setup: %v", err)
	}
	if err := Setup(loop, key, lib, onDisconnect, release); err != nil {
		t.Fatalf("second Setup: %v", err)
	}

	if lib.installs != 1 {
		t.Fatalf("InstallHooks called %d times, want 1", lib.installs)
	}
	if len(lib.filters) != 2 {
		t.Fatalf("filters installed = %d, want 2", len(lib.filters))
	}
	if RefCount(key) != 2 {
		t.Fatalf("RefCount = %d, want 2", RefCount(key))
	}

	lib.fireDisconnect()

	if handlerCalls != 2 {
		t.Fatalf("onDisconnect called %d times, want 2", handlerCalls)
	}
	if released != 2 {
		t.Fatalf("release called %d times, want 2", released)
	}
	if RefCount(key) != 0 {
		t.Fatalf("RefCount after disconnect = %d, want 0", RefCount(key))
	}
}

func TestSetup_DifferentKeysAreIndependent(t *testing.T) {
	lib := &fakeLibrary{}
	loop := newFakeLoop()
	defer delete(bindings, "a")
	defer delete(bindings, "b")

	_ = Setup(loop, "a", lib, nil, nil)
	_ = Setup(loop, "b", lib, nil, nil)

	if lib.installs != 2 {
		t.Fatalf("InstallHooks called %d times across distinct keys, want 2", lib.installs)
	}
}
