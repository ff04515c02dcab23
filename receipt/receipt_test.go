package receipt_test

import (
	"testing"

	"github.com/dlazar-im/toxcore/receipt"
)

func TestDrainStopsAtFirstUnacked(t *testing.T) {
	var q receipt.Queue
	q.Add(1, 100)
	q.Add(2, 101)
	q.Add(3, 102)

	acked := map[uint32]bool{1: true, 2: true}
	var got []uint32
	q.Drain(func(pn uint32) bool { return acked[pn] }, func(msgID uint32) {
		got = append(got, msgID)
	})

	if len(got) != 2 || got[0] != 100 || got[1] != 101 {
		t.Fatalf("expected receipts [100 101], got %v", got)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 entry remaining, got %d", q.Len())
	}

	acked[3] = true
	q.Drain(func(pn uint32) bool { return acked[pn] }, func(msgID uint32) {
		got = append(got, msgID)
	})
	if q.Len() != 0 {
		t.Fatalf("expected queue drained, got %d remaining", q.Len())
	}
	if len(got) != 3 || got[2] != 102 {
		t.Fatalf("expected final receipt 102, got %v", got)
	}
}

func TestDrainNoProgressWhenHeadUnacked(t *testing.T) {
	var q receipt.Queue
	q.Add(5, 1)
	q.Add(6, 2)

	calls := 0
	q.Drain(func(pn uint32) bool { return pn == 6 }, func(uint32) { calls++ })
	if calls != 0 {
		t.Fatalf("expected no receipts fired when head is unacked, got %d", calls)
	}
	if q.Len() != 2 {
		t.Fatalf("expected queue untouched, got len %d", q.Len())
	}
}

func TestClear(t *testing.T) {
	var q receipt.Queue
	q.Add(1, 1)
	q.Clear()
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after Clear")
	}
}
