package trace

import "testing"

func TestRingEvictsOldest(t *testing.T) {
	var r Ring
	for i := 0; i < Capacity+5; i++ {
		r.Push(Entry{StartCycle: uint64(i), PC: uint16(i)})
	}
	if r.Len() != Capacity {
		t.Fatalf("Len() = %d, want %d", r.Len(), Capacity)
	}
	entries := r.Entries()
	if entries[0].StartCycle != 5 {
		t.Fatalf("oldest entry StartCycle = %d, want 5", entries[0].StartCycle)
	}
	if entries[len(entries)-1].StartCycle != uint64(Capacity+4) {
		t.Fatalf("newest entry StartCycle = %d, want %d", entries[len(entries)-1].StartCycle, Capacity+4)
	}
}

func TestRingResetClears(t *testing.T) {
	var r Ring
	r.Push(Entry{PC: 1})
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", r.Len())
	}
	if len(r.Entries()) != 0 {
		t.Fatalf("Entries() after Reset = %v, want empty", r.Entries())
	}
}

func TestRingOrderBeforeFull(t *testing.T) {
	var r Ring
	r.Push(Entry{PC: 10})
	r.Push(Entry{PC: 20})
	r.Push(Entry{PC: 30})
	entries := r.Entries()
	want := []uint16{10, 20, 30}
	for i, w := range want {
		if entries[i].PC != w {
			t.Fatalf("entries[%d].PC = %d, want %d", i, entries[i].PC, w)
		}
	}
}
