package dbus

import (
	"testing"
	"time"
)

func TestPeriod_RoundsUpNeverDown(t *testing.T) {
	cases := []struct {
		ms   int
		want time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{250, time.Second},
		{1000, time.Second},
		{1001, 2 * time.Second},
		{1500, 2 * time.Second},
		{2000, 2 * time.Second},
		{2500, 3 * time.Second},
	}

	for _, tc := range cases {
		if got := Period(tc.ms); got != tc.want {
			t.Errorf("Period(%d) = %v, want %v", tc.ms, got, tc.want)
		}
	}
}

func TestTimeoutBridge_ToggleReseatsInterval(t *testing.T) {
	loop := newFakeLoop()
	bridge := NewTimeoutBridge(loop)

	to := &fakeTimeout{intervalMs: 250, enabled: true}
	if err := bridge.AddTimeout(to); err != nil {
		t.Fatalf("AddTimeout: %v", err)
	}

	handle := bridge.records[to].handle
	if loop.timers[handle.(int)].period != time.Second {
		t.Fatalf("initial period = %v, want 1s", loop.timers[handle.(int)].period)
	}

	to.intervalMs = 2500
	bridge.ToggleTimeout(to)

	newHandle := bridge.records[to].handle
	if loop.timers[newHandle.(int)].period != 3*time.Second {
		t.Fatalf("period after re-toggle = %v, want 3s", loop.timers[newHandle.(int)].period)
	}
	if bridge.ActiveCount() != 1 {
		t.Fatalf("ActiveCount = %d, want 1", bridge.ActiveCount())
	}
}

func TestTimeoutBridge_DisableRetainsRecord(t *testing.T) {
	loop := newFakeLoop()
	bridge := NewTimeoutBridge(loop)

	to := &fakeTimeout{intervalMs: 1500, enabled: true}
	_ = bridge.AddTimeout(to)

	to.enabled = false
	bridge.ToggleTimeout(to)
	if bridge.ActiveCount() != 0 {
		t.Fatalf("ActiveCount after disable = %d, want 0", bridge.ActiveCount())
	}
	if _, ok := bridge.records[to]; !ok {
		t.Fatalf("record dropped on disable, want retained")
	}

	to.enabled = true
	bridge.ToggleTimeout(to)
	if bridge.ActiveCount() != 1 {
		t.Fatalf("ActiveCount after re-enable = %d, want 1", bridge.ActiveCount())
	}
}

func TestTimeoutBridge_RemoveIsIdempotent(t *testing.T) {
	loop := newFakeLoop()
	bridge := NewTimeoutBridge(loop)

	to := &fakeTimeout{intervalMs: 1000, enabled: true}
	_ = bridge.AddTimeout(to)
	bridge.RemoveTimeout(to)
	bridge.RemoveTimeout(to) // must not panic
	bridge.ToggleTimeout(to) // must not panic

	if bridge.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d, want 0", bridge.ActiveCount())
	}
}
