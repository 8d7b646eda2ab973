package geocache

import "sync/atomic"

type counters struct {
	reserved   atomic.Uint64
	applied    atomic.Uint64
	stale      atomic.Uint64
	tombstoned atomic.Uint64
	unreserved atomic.Uint64
	orphaned   atomic.Uint64
	removed    atomic.Uint64
}

func (c *counters) count(r WriteResult) {
	switch r {
	case Applied:
		c.applied.Add(1)
	case Stale:
		c.stale.Add(1)
	case Tombstoned:
		c.tombstoned.Add(1)
	case Unreserved:
		c.unreserved.Add(1)
	case UnknownOwner:
		c.orphaned.Add(1)
	}
}

// Stats is a point-in-time copy of the cache counters.
type Stats struct {
	Reserved   uint64
	Applied    uint64
	Stale      uint64
	Tombstoned uint64
	Unreserved uint64
	Orphaned   uint64
	Removed    uint64
}

// Stats returns the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Reserved:   c.stats.reserved.Load(),
		Applied:    c.stats.applied.Load(),
		Stale:      c.stats.stale.Load(),
		Tombstoned: c.stats.tombstoned.Load(),
		Unreserved: c.stats.unreserved.Load(),
		Orphaned:   c.stats.orphaned.Load(),
		Removed:    c.stats.removed.Load(),
	}
}

// RejectRate returns the share of writes that were not applied (0.0 - 1.0).
func (s Stats) RejectRate() float64 {
	total := s.Applied + s.Stale + s.Tombstoned + s.Unreserved + s.Orphaned
	if total == 0 {
		return 0
	}
	return float64(total-s.Applied) / float64(total)
}
