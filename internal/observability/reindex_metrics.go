package observability

import (
	"sync/atomic"
	"time"
)

// SyncStats are in-process counters for the search reconciliation loop,
// served on the worker's /statsz endpoint.
type SyncStats struct {
	sweeps  atomic.Uint64
	indexed atomic.Uint64
	failed  atomic.Uint64

	// duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64

	lastSweep atomic.Int64
}

func NewSyncStats() *SyncStats {
	return &SyncStats{}
}

func (m *SyncStats) IncSweeps() {
	m.sweeps.Add(1)
	m.lastSweep.Store(time.Now().UnixNano())
}

func (m *SyncStats) IncIndexed() {
	m.indexed.Add(1)
}

func (m *SyncStats) IncFailed() {
	m.failed.Add(1)
}

func (m *SyncStats) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type SyncStatsSnapshot struct {
	Sweeps          uint64        `json:"sweeps"`
	Indexed         uint64        `json:"indexed"`
	Failed          uint64        `json:"failed"`
	AverageDuration time.Duration `json:"averageDurationNs"`
	MaxDuration     time.Duration `json:"maxDurationNs"`
	LastSweep       *time.Time    `json:"lastSweep,omitempty"`
}

func (m *SyncStats) Snapshot() SyncStatsSnapshot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()

	var avg time.Duration
	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	snap := SyncStatsSnapshot{
		Sweeps:          m.sweeps.Load(),
		Indexed:         m.indexed.Load(),
		Failed:          m.failed.Load(),
		AverageDuration: avg,
		MaxDuration:     time.Duration(m.durationMax.Load()),
	}

	if ns := m.lastSweep.Load(); ns > 0 {
		t := time.Unix(0, ns).UTC()
		snap.LastSweep = &t
	}

	return snap
}
