package geocache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-cables/pkg/curve"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

func line(n int, y float64) []curve.Vec2 {
	pts := make([]curve.Vec2, n)
	for i := range pts {
		pts[i] = curve.V(float64(i), y)
	}
	return pts
}

func ids() (topology.NodeID, topology.NodeID) {
	return topology.NewNodeID(), topology.NewNodeID()
}

func TestReserveCreatesPendingEntry(t *testing.T) {
	c := New()
	owner, nb := ids()

	gen := c.Reserve(owner, nb)
	assert.NotZero(t, gen)

	e, ok := c.Get(owner, nb)
	require.True(t, ok)
	assert.Equal(t, uint64(0), e.Generation)
	assert.Equal(t, gen, e.Pending)
	assert.True(t, e.InFlight())
	assert.False(t, e.Populated())
	assert.Equal(t, 1, c.Len(owner))
}

func TestUpsertApplies(t *testing.T) {
	c := New()
	owner, nb := ids()

	gen := c.Reserve(owner, nb)
	assert.Equal(t, Applied, c.Upsert(owner, nb, gen, line(10, 0)))

	e, ok := c.Get(owner, nb)
	require.True(t, ok)
	assert.Equal(t, gen, e.Generation)
	assert.False(t, e.InFlight())
	assert.Len(t, e.Points, 10)
}

func TestReserveKeepsPointsWhilePending(t *testing.T) {
	c := New()
	owner, nb := ids()

	g1 := c.Reserve(owner, nb)
	c.Upsert(owner, nb, g1, line(10, 1))
	g2 := c.Reserve(owner, nb)
	assert.Greater(t, g2, g1)

	e, _ := c.Get(owner, nb)
	assert.Equal(t, g1, e.Generation)
	assert.Equal(t, g2, e.Pending)
	assert.Len(t, e.Points, 10)
}

func TestNewestEnqueuedWins(t *testing.T) {
	c := New()
	owner, nb := ids()

	g1 := c.Reserve(owner, nb)
	g2 := c.Reserve(owner, nb)

	// g2 finishes first, g1 straggles in afterwards.
	assert.Equal(t, Applied, c.Upsert(owner, nb, g2, line(12, 2)))
	assert.Equal(t, Stale, c.Upsert(owner, nb, g1, line(10, 1)))

	e, _ := c.Get(owner, nb)
	assert.Equal(t, g2, e.Generation)
	assert.Equal(t, 2.0, e.Points[0].Y)
}

func TestInOrderCompletionAlsoEndsAtNewest(t *testing.T) {
	c := New()
	owner, nb := ids()

	g1 := c.Reserve(owner, nb)
	g2 := c.Reserve(owner, nb)
	assert.Equal(t, Applied, c.Upsert(owner, nb, g1, line(10, 1)))
	assert.Equal(t, Applied, c.Upsert(owner, nb, g2, line(10, 2)))

	e, _ := c.Get(owner, nb)
	assert.Equal(t, g2, e.Generation)
	assert.Equal(t, g2, e.Pending)
}

func TestRemoveTombstonesInFlightWrite(t *testing.T) {
	c := New()
	owner, nb := ids()

	gen := c.Reserve(owner, nb)
	assert.True(t, c.Remove(owner, nb))
	assert.Equal(t, Unreserved, c.Upsert(owner, nb, gen, line(10, 0)))

	_, ok := c.Get(owner, nb)
	assert.False(t, ok, "stale write resurrected a removed entry")
}

func TestReAddAfterRemove(t *testing.T) {
	c := New()
	owner, nb := ids()

	old := c.Reserve(owner, nb)
	c.Remove(owner, nb)
	fresh := c.Reserve(owner, nb)
	assert.Greater(t, fresh, old)

	// The old request lands after the link came back: still rejected.
	assert.Equal(t, Tombstoned, c.Upsert(owner, nb, old, line(10, 9)))
	assert.Equal(t, Applied, c.Upsert(owner, nb, fresh, line(10, 1)))

	e, _ := c.Get(owner, nb)
	assert.Equal(t, fresh, e.Generation)
	assert.Equal(t, 1.0, e.Points[0].Y)
}

func TestRemoveMissing(t *testing.T) {
	c := New()
	owner, nb := ids()
	assert.False(t, c.Remove(owner, nb))

	c.Reserve(owner, topology.NewNodeID())
	assert.False(t, c.Remove(owner, nb))
}

func TestUpsertRequiresReservation(t *testing.T) {
	c := New()
	owner, nb := ids()

	assert.Equal(t, UnknownOwner, c.Upsert(owner, nb, 1, line(10, 0)))

	c.Reserve(owner, topology.NewNodeID())
	assert.Equal(t, Unreserved, c.Upsert(owner, nb, 1, line(10, 0)))

	gen := c.Reserve(owner, nb)
	assert.Equal(t, Tombstoned, c.Upsert(owner, nb, gen+5, line(10, 0)), "generation never issued")
}

func TestClear(t *testing.T) {
	c := New()
	owner := topology.NewNodeID()

	var gens []uint64
	var nbs []topology.NodeID
	for i := 0; i < 5; i++ {
		nb := topology.NewNodeID()
		nbs = append(nbs, nb)
		gens = append(gens, c.Reserve(owner, nb))
	}
	c.Upsert(owner, nbs[0], gens[0], line(10, 0))

	assert.Equal(t, 5, c.Clear(owner))
	assert.Equal(t, 0, c.Len(owner))

	for i, nb := range nbs {
		assert.NotEqual(t, Applied, c.Upsert(owner, nb, gens[i], line(10, 0)))
	}
	assert.Equal(t, 0, c.Len(owner))
	assert.Equal(t, 0, c.Clear(topology.NewNodeID()))
}

func TestDropOwner(t *testing.T) {
	c := New()
	owner, nb := ids()

	gen := c.Reserve(owner, nb)
	c.Upsert(owner, nb, gen, line(10, 0))
	g2 := c.Reserve(owner, nb)

	assert.Equal(t, 1, c.DropOwner(owner))
	assert.Equal(t, UnknownOwner, c.Upsert(owner, nb, g2, line(10, 0)))
	assert.Empty(t, c.Owners())
	assert.Equal(t, 0, c.DropOwner(owner))

	// A node that comes back under the same id starts clean and still
	// ignores writes from before the drop.
	g3 := c.Reserve(owner, nb)
	assert.Equal(t, Tombstoned, c.Upsert(owner, nb, g2, line(10, 0)))
	assert.Equal(t, Applied, c.Upsert(owner, nb, g3, line(10, 0)))
}

func TestIterate(t *testing.T) {
	c := New()
	owner := topology.NewNodeID()

	want := map[topology.NodeID]int{}
	for i := 2; i < 6; i++ {
		nb := topology.NewNodeID()
		gen := c.Reserve(owner, nb)
		c.Upsert(owner, nb, gen, line(i, 0))
		want[nb] = i
	}
	pending := topology.NewNodeID()
	c.Reserve(owner, pending)
	want[pending] = 0

	got := map[topology.NodeID]int{}
	for nb, pts := range c.Iterate(owner) {
		got[nb] = len(pts)
	}
	assert.Equal(t, want, got, "iterate yields empty entries too")

	count := 0
	for range c.Iterate(owner) {
		count++
		break
	}
	assert.Equal(t, 1, count)

	for range c.Iterate(topology.NewNodeID()) {
		t.Fatal("unknown owner should yield nothing")
	}
}

func TestIterateSnapshotIsolation(t *testing.T) {
	c := New()
	owner, nb := ids()
	gen := c.Reserve(owner, nb)
	c.Upsert(owner, nb, gen, line(10, 1))

	seen := 0
	for range c.Iterate(owner) {
		// Mutate mid-iteration; the running loop keeps its snapshot.
		other := topology.NewNodeID()
		c.Upsert(owner, other, c.Reserve(owner, other), line(10, 2))
		c.Remove(owner, nb)
		seen++
	}
	assert.Equal(t, 1, seen)
	assert.Equal(t, 1, c.Len(owner))
}

func TestStats(t *testing.T) {
	c := New()
	owner, nb := ids()

	g1 := c.Reserve(owner, nb)
	g2 := c.Reserve(owner, nb)
	c.Upsert(owner, nb, g2, line(10, 0))
	c.Upsert(owner, nb, g1, line(10, 0))
	c.Remove(owner, nb)
	c.Upsert(owner, nb, g2, line(10, 0))

	s := c.Stats()
	assert.Equal(t, uint64(2), s.Reserved)
	assert.Equal(t, uint64(1), s.Applied)
	assert.Equal(t, uint64(1), s.Stale)
	assert.Equal(t, uint64(1), s.Unreserved)
	assert.Equal(t, uint64(1), s.Removed)
	assert.InDelta(t, 2.0/3.0, s.RejectRate(), 1e-9)
	assert.Equal(t, 0.0, Stats{}.RejectRate())
}

func TestWriteResultString(t *testing.T) {
	for r, want := range map[WriteResult]string{
		Applied:         "applied",
		Stale:           "stale",
		Tombstoned:      "tombstoned",
		Unreserved:      "unreserved",
		UnknownOwner:    "unknown_owner",
		WriteResult(42): "unknown",
	} {
		assert.Equal(t, want, r.String())
	}
}

// TestConcurrentReadersAndWriters hammers one owner from several writers
// while readers iterate. Every sequence a reader sees must be internally
// consistent: all points of a cable carry the same Y, which is the
// generation that wrote it. Run with -race.
func TestConcurrentReadersAndWriters(t *testing.T) {
	c := New()
	owner := topology.NewNodeID()
	neighbors := make([]topology.NodeID, 8)
	for i := range neighbors {
		neighbors[i] = topology.NewNodeID()
	}

	const writes = 500
	var wg sync.WaitGroup
	var torn atomic.Int64
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for _, pts := range c.Iterate(owner) {
					for _, p := range pts {
						if p.Y != pts[0].Y {
							torn.Add(1)
						}
					}
				}
			}
		}()
	}

	var writers sync.WaitGroup
	for w := 0; w < 4; w++ {
		writers.Add(1)
		go func(w int) {
			defer writers.Done()
			for i := 0; i < writes; i++ {
				nb := neighbors[(i+w)%len(neighbors)]
				gen := c.Reserve(owner, nb)
				switch i % 7 {
				case 3:
					c.Remove(owner, nb)
				default:
					c.Upsert(owner, nb, gen, line(10+i%5, float64(gen)))
				}
			}
		}(w)
	}
	writers.Wait()
	close(stop)
	wg.Wait()

	assert.Zero(t, torn.Load(), "reader observed a partially written cable")

	for _, e := range c.Entries(owner) {
		if e.Populated() {
			assert.Equal(t, float64(e.Generation), e.Points[0].Y, fmt.Sprintf("entry %s", e.Neighbor))
		}
		assert.GreaterOrEqual(t, e.Pending, e.Generation)
	}
}

func TestSizeAndOwners(t *testing.T) {
	c := New()
	a, b := ids()
	c.Reserve(a, topology.NewNodeID())
	c.Reserve(a, topology.NewNodeID())
	c.Reserve(b, topology.NewNodeID())

	assert.Equal(t, 3, c.Size())
	assert.ElementsMatch(t, []topology.NodeID{a, b}, c.Owners())
}
