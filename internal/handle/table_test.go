package handle

import (
	"fmt"
	"testing"
)

func TestDeriveDeterministicAndNonNegative(t *testing.T) {
	ids := []string{"abc123", "", "f1e2d3", "channel-with-a-rather-long-identifier"}
	for _, id := range ids {
		a := Derive(id)
		b := Derive(id)
		if a != b {
			t.Fatalf("Derive(%q) not deterministic: %d vs %d", id, a, b)
		}
		if a < 0 {
			t.Fatalf("Derive(%q) = %d, want non-negative", id, a)
		}
	}
}

func TestAcquireRoundTrip(t *testing.T) {
	tbl := NewTable()
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = fmt.Sprintf("srv-id-%03d", i)
	}
	handles := make(map[string]int32, len(ids))
	for _, id := range ids {
		handles[id] = tbl.Acquire(id)
	}
	for _, id := range ids {
		got, ok := tbl.ServerID(handles[id])
		if !ok {
			t.Fatalf("handle %d for %q not found", handles[id], id)
		}
		if got != id {
			t.Fatalf("handle %d resolved to %q, want %q", handles[id], got, id)
		}
	}
}

func TestAcquireStableAcrossRepeats(t *testing.T) {
	tbl := NewTable()
	first := tbl.Acquire("abc123")
	for i := 0; i < 5; i++ {
		if got := tbl.Acquire("abc123"); got != first {
			t.Fatalf("repeat Acquire changed handle: %d vs %d", got, first)
		}
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected 1 allocation, got %d", tbl.Len())
	}
}

func TestCollisionProbesToFreeSlot(t *testing.T) {
	tbl := NewTable()
	h1 := tbl.Acquire("first")

	// Force a collision by occupying the second id's candidate slot.
	tbl.mu.Lock()
	candidate := Derive("second")
	tbl.byHandle[candidate] = "squatter"
	tbl.byServerID["squatter"] = candidate
	tbl.mu.Unlock()

	h2 := tbl.Acquire("second")
	if h2 == candidate {
		t.Fatalf("collision not resolved: %d", h2)
	}
	if h2 < 0 {
		t.Fatalf("probed handle is negative: %d", h2)
	}
	if h1 == h2 {
		t.Fatalf("distinct ids share handle %d", h1)
	}
	if got, _ := tbl.ServerID(h2); got != "second" {
		t.Fatalf("probed handle resolves to %q", got)
	}
}

func TestUnknownHandleIsAMiss(t *testing.T) {
	tbl := NewTable()
	if _, ok := tbl.ServerID(12345); ok {
		t.Fatal("unknown handle must miss")
	}
	if _, ok := tbl.Handle("nope"); ok {
		t.Fatal("unknown id must miss")
	}
}
