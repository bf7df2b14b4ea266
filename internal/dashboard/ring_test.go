package dashboard

import (
	"testing"

	"netflow-collector/pkg/flowrecord"
)

func TestRingOverwritesOldestWhenFull(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Add(&flowrecord.Record{InBytes: flowrecord.U64(uint64(i))})
	}

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected snapshot of 3 (ring capacity), got %d", len(snap))
	}

	want := []uint64{2, 3, 4}
	for i, rec := range snap {
		if *rec.InBytes != want[i] {
			t.Errorf("snapshot[%d] = %d, want %d", i, *rec.InBytes, want[i])
		}
	}
}

func TestRingSnapshotBeforeFull(t *testing.T) {
	r := NewRing(5)
	r.Add(&flowrecord.Record{InBytes: flowrecord.U64(1)})
	r.Add(&flowrecord.Record{InBytes: flowrecord.U64(2)})

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 records before the ring fills, got %d", len(snap))
	}
}

func TestRingStatsAccumulate(t *testing.T) {
	r := NewRing(10)
	r.Add(&flowrecord.Record{InBytes: flowrecord.U64(100), InPkts: flowrecord.U64(1)})
	r.Add(&flowrecord.Record{InBytes: flowrecord.U64(200), InPkts: flowrecord.U64(2)})

	stats := r.Stats()
	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
	if stats.TotalBytes != 300 {
		t.Errorf("TotalBytes = %d, want 300", stats.TotalBytes)
	}
	if stats.TotalPkts != 3 {
		t.Errorf("TotalPkts = %d, want 3", stats.TotalPkts)
	}
}

func TestRingCapacityFloorsAtOne(t *testing.T) {
	r := NewRing(0)
	r.Add(&flowrecord.Record{})
	r.Add(&flowrecord.Record{})
	if len(r.Snapshot()) != 1 {
		t.Fatalf("expected capacity-0 ring to behave as capacity 1")
	}
}
