package events

import (
	"fmt"
	"testing"
)

func TestRingBufferAddAndList(t *testing.T) {
	rb := NewRingBuffer(5)

	for i := 0; i < 3; i++ {
		rb.Add(FormattedEvent{ViewID: "v1", Formatted: fmt.Sprintf("event %d", i)})
	}

	if rb.Len() != 3 {
		t.Errorf("Len() = %d, want 3", rb.Len())
	}

	all := rb.ListAll()
	if len(all) != 3 {
		t.Fatalf("ListAll() returned %d events, want 3", len(all))
	}
	for i, e := range all {
		want := fmt.Sprintf("event %d", i)
		if e.Formatted != want {
			t.Errorf("event[%d] = %q, want %q", i, e.Formatted, want)
		}
	}
}

func TestRingBufferEviction(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := 0; i < 5; i++ {
		rb.Add(FormattedEvent{Formatted: fmt.Sprintf("event %d", i)})
	}

	if rb.Len() != 3 {
		t.Errorf("Len() = %d, want 3", rb.Len())
	}

	all := rb.ListAll()
	wants := []string{"event 2", "event 3", "event 4"}
	for i, want := range wants {
		if all[i].Formatted != want {
			t.Errorf("event[%d] = %q, want %q", i, all[i].Formatted, want)
		}
	}
}

func TestRingBufferListByView(t *testing.T) {
	rb := NewRingBuffer(10)
	rb.Add(FormattedEvent{ViewID: "v1", Formatted: "a"})
	rb.Add(FormattedEvent{ViewID: "v2", Formatted: "b"})
	rb.Add(FormattedEvent{ViewID: "v1", Formatted: "c"})

	got := rb.ListByView("v1")
	if len(got) != 2 {
		t.Fatalf("ListByView(v1) returned %d events, want 2", len(got))
	}
	if got[0].Formatted != "a" || got[1].Formatted != "c" {
		t.Errorf("ListByView(v1) = %q, %q, want a, c", got[0].Formatted, got[1].Formatted)
	}

	if got := rb.ListByView("missing"); got != nil {
		t.Errorf("ListByView(missing) = %v, want nil", got)
	}
}

func TestRingBufferRecent(t *testing.T) {
	rb := NewRingBuffer(10)
	for i := 0; i < 6; i++ {
		rb.Add(FormattedEvent{Formatted: fmt.Sprintf("event %d", i)})
	}

	got := rb.Recent(2)
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d events, want 2", len(got))
	}
	if got[0].Formatted != "event 4" || got[1].Formatted != "event 5" {
		t.Errorf("Recent(2) = %q, %q, want event 4, event 5", got[0].Formatted, got[1].Formatted)
	}

	if got := rb.Recent(0); len(got) != 6 {
		t.Errorf("Recent(0) returned %d events, want all 6", len(got))
	}
}

func TestRingBufferMinimumCapacity(t *testing.T) {
	rb := NewRingBuffer(0)
	if rb.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1", rb.Cap())
	}
	rb.Add(FormattedEvent{Formatted: "only"})
	rb.Add(FormattedEvent{Formatted: "newer"})
	all := rb.ListAll()
	if len(all) != 1 || all[0].Formatted != "newer" {
		t.Errorf("ListAll() = %v, want single newer event", all)
	}
}
