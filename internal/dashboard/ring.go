// Package dashboard holds the state behind the live terminal view: a
// bounded in-memory buffer of recently seen records, running totals, and a
// Wireshark-like filter expression language to search them. None of it
// touches the wire-faithful records handed to the other publishers; this is
// purely a display concern.
package dashboard

import (
	"sync"
	"time"

	"netflow-collector/pkg/flowrecord"
)

// Ring is a fixed-capacity circular buffer of the most recently received
// records. Once full, inserting a new record overwrites the oldest one.
// There is no persistence and no eviction policy beyond simple recency: this
// mirrors the bounded, no-surprises behavior the live view needs and avoids
// carrying over the teacher's elephant-flow/LRU eviction machinery, which
// existed to protect an unbounded aggregate flow store this collector does
// not keep.
type Ring struct {
	mu         sync.RWMutex
	buf        []*flowrecord.Record
	cap        int
	next       int
	filled     bool
	total      uint64
	totalBytes uint64
	totalPkts  uint64
	started    time.Time
}

// NewRing creates a ring of the given capacity. Capacity below 1 is treated
// as 1.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		buf:     make([]*flowrecord.Record, capacity),
		cap:     capacity,
		started: time.Now(),
	}
}

// Add inserts a record, evicting the oldest entry if the ring is full.
func (r *Ring) Add(rec *flowrecord.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = rec
	r.next = (r.next + 1) % r.cap
	if r.next == 0 {
		r.filled = true
	}

	r.total++
	r.totalBytes += counterBytes(rec)
	r.totalPkts += counterPkts(rec)
}

// Snapshot returns the buffered records in insertion order, oldest first.
func (r *Ring) Snapshot() []*flowrecord.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if !r.filled {
		out := make([]*flowrecord.Record, n)
		copy(out, r.buf[:n])
		return out
	}

	out := make([]*flowrecord.Record, r.cap)
	copy(out, r.buf[n:])
	copy(out[r.cap-n:], r.buf[:n])
	return out
}

// Stats describes running totals since the ring was created.
type Stats struct {
	Total      uint64
	TotalBytes uint64
	TotalPkts  uint64
	PerSecond  float64
	Uptime     time.Duration
}

// Stats computes the current running totals. PerSecond is records received
// divided by elapsed wall time, not a windowed rate.
func (r *Ring) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	elapsed := time.Since(r.started).Seconds()
	var perSecond float64
	if elapsed > 0 {
		perSecond = float64(r.total) / elapsed
	}

	return Stats{
		Total:      r.total,
		TotalBytes: r.totalBytes,
		TotalPkts:  r.totalPkts,
		PerSecond:  perSecond,
		Uptime:     time.Since(r.started),
	}
}

func counterBytes(r *flowrecord.Record) uint64 {
	if r.InBytes != nil {
		return *r.InBytes
	}
	if r.D0ctets != nil {
		return *r.D0ctets
	}
	return 0
}

func counterPkts(r *flowrecord.Record) uint64 {
	if r.InPkts != nil {
		return *r.InPkts
	}
	if r.Dpkts != nil {
		return *r.Dpkts
	}
	return 0
}
