package events

import (
	"sync/atomic"
	"testing"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()

	var a, b atomic.Int32
	bus.Subscribe(func(Event) { a.Add(1) })
	bus.Subscribe(func(Event) { b.Add(1) })

	bus.Publish(Event{Type: InstallStarted, Message: "installing M2040"})

	if a.Load() != 1 || b.Load() != 1 {
		t.Errorf("subscriber calls = %d, %d; want 1, 1", a.Load(), b.Load())
	}
}

func TestSubscribeFiltersTypes(t *testing.T) {
	bus := NewBus()

	var got atomic.Int32
	bus.Subscribe(func(Event) { got.Add(1) }, InstallFailed)

	bus.Publish(Event{Type: InstallStarted})
	bus.Publish(Event{Type: InstallFailed})
	bus.Publish(Event{Type: ScanIngested})

	if got.Load() != 1 {
		t.Errorf("filtered subscriber got %d events, want 1", got.Load())
	}
}

func TestPublishSetsTimestamp(t *testing.T) {
	bus := NewBus()

	var stamped bool
	bus.Subscribe(func(e Event) { stamped = !e.Timestamp.IsZero() })

	bus.Publish(Event{Type: PluginMissing})

	if !stamped {
		t.Error("expected Publish to set a timestamp")
	}
}

func TestSubscriberPanicIsContained(t *testing.T) {
	bus := NewBus()

	bus.Subscribe(func(Event) { panic("boom") })

	var after atomic.Int32
	bus.Subscribe(func(Event) { after.Add(1) })

	bus.Publish(Event{Type: InstallFailed})

	if after.Load() != 1 {
		t.Error("panic in one subscriber should not stop delivery to others")
	}
}

func TestSeverityString(t *testing.T) {
	tests := []struct {
		s    Severity
		want string
	}{
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityCritical, "critical"},
		{Severity(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
