// Package geocache holds the sampled cable geometry for every owned link.
//
// The cache is shared between one render goroutine that walks it every frame
// and any number of background workers that write finished cables into it.
// Readers never take a lock: each owner publishes an immutable
// neighbour->entry map through an atomic pointer and writers replace that map
// wholesale (copy-on-write). Point slices are never modified after they are
// published, so a reader holding an old slice keeps a consistent cable.
//
// Generations come from one cache-wide counter, so they increase strictly
// for every (owner, neighbour) key. Upsert only accepts a generation newer
// than what the entry holds and only for a key with a live reservation.
// Removing a key discards its reservation; a later Reserve starts a new one
// whose floor is the counter value at that moment, so a late write from
// before the removal can neither overwrite a newer cable nor resurrect a
// removed one, and no per-key state outlives the entry.
package geocache

import (
	"iter"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-cables/pkg/curve"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

// WriteResult says what Upsert did. None of these are errors.
type WriteResult int

const (
	// Applied means the points were published.
	Applied WriteResult = iota
	// Stale means the entry already holds the same or a newer generation.
	Stale
	// Tombstoned means the key was removed after this generation was issued.
	Tombstoned
	// Unreserved means the key has no live reservation, e.g. it was removed
	// and not reserved again.
	Unreserved
	// UnknownOwner means the owner was never reserved or has been dropped.
	UnknownOwner
)

func (r WriteResult) String() string {
	switch r {
	case Applied:
		return "applied"
	case Stale:
		return "stale"
	case Tombstoned:
		return "tombstoned"
	case Unreserved:
		return "unreserved"
	case UnknownOwner:
		return "unknown_owner"
	default:
		return "unknown"
	}
}

// Entry is the published geometry for one link.
type Entry struct {
	Neighbor topology.NodeID
	// Generation of the points currently held; 0 before the first write.
	Generation uint64
	// Pending is the newest generation requested for this key.
	Pending uint64
	// Points must be treated as read-only.
	Points []curve.Vec2
}

// Populated reports whether the entry has drawable points.
func (e Entry) Populated() bool {
	return len(e.Points) >= 2
}

// InFlight reports whether a newer computation has been requested than the
// one currently held.
func (e Entry) InFlight() bool {
	return e.Pending > e.Generation
}

type entryMap map[topology.NodeID]*Entry

// keyState is the writer-side bookkeeping for one reserved neighbour.
type keyState struct {
	issued uint64 // last generation handed out
	floor  uint64 // writes at or below this generation are dropped
}

// shard holds one owner's cables.
type shard struct {
	mu   sync.Mutex
	keys map[topology.NodeID]*keyState
	snap atomic.Pointer[entryMap]
}

func newShard() *shard {
	s := &shard{keys: make(map[topology.NodeID]*keyState)}
	empty := entryMap{}
	s.snap.Store(&empty)
	return s
}

func (s *shard) load() entryMap {
	return *s.snap.Load()
}

// publish swaps in a copy of the current map with fn applied. Caller holds s.mu.
func (s *shard) publish(fn func(entryMap)) {
	cur := s.load()
	next := make(entryMap, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	fn(next)
	s.snap.Store(&next)
}

// Cache maps owner -> neighbour -> Entry.
type Cache struct {
	mu     sync.RWMutex
	owners map[topology.NodeID]*shard
	clock  atomic.Uint64

	stats counters
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{owners: make(map[topology.NodeID]*shard)}
}

func (c *Cache) shard(owner topology.NodeID) *shard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owners[owner]
}

func (c *Cache) shardOrCreate(owner topology.NodeID) *shard {
	if s := c.shard(owner); s != nil {
		return s
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.owners[owner]
	if !ok {
		s = newShard()
		c.owners[owner] = s
	}
	return s
}

// Reserve issues the next generation for (owner, neighbor). If no entry
// exists yet an empty one is created so the link is visible as pending.
// An existing entry keeps its points until the new generation lands.
func (c *Cache) Reserve(owner, neighbor topology.NodeID) uint64 {
	s := c.shardOrCreate(owner)

	s.mu.Lock()
	defer s.mu.Unlock()

	ks, ok := s.keys[neighbor]
	if !ok {
		// Everything issued before this point belongs to an earlier
		// reservation and must never land.
		ks = &keyState{floor: c.clock.Load()}
		s.keys[neighbor] = ks
	}
	gen := c.clock.Add(1)
	ks.issued = gen

	s.publish(func(m entryMap) {
		if cur, ok := m[neighbor]; ok {
			e := *cur
			e.Pending = gen
			m[neighbor] = &e
			return
		}
		m[neighbor] = &Entry{Neighbor: neighbor, Pending: gen}
	})
	c.stats.reserved.Add(1)
	return gen
}

// Upsert publishes points for (owner, neighbor) at generation gen if gen is
// newer than the entry's current generation and above the tombstone floor.
// The slice is stored as-is and must not be modified afterwards.
func (c *Cache) Upsert(owner, neighbor topology.NodeID, gen uint64, points []curve.Vec2) WriteResult {
	s := c.shard(owner)
	if s == nil {
		c.stats.count(UnknownOwner)
		return UnknownOwner
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ks, ok := s.keys[neighbor]
	if !ok {
		c.stats.count(Unreserved)
		return Unreserved
	}
	if gen <= ks.floor || gen > ks.issued {
		c.stats.count(Tombstoned)
		return Tombstoned
	}
	cur, exists := s.load()[neighbor]
	if exists && gen <= cur.Generation {
		c.stats.count(Stale)
		return Stale
	}

	pending := gen
	if exists && cur.Pending > pending {
		pending = cur.Pending
	}
	s.publish(func(m entryMap) {
		m[neighbor] = &Entry{
			Neighbor:   neighbor,
			Generation: gen,
			Pending:    pending,
			Points:     points,
		}
	})
	c.stats.count(Applied)
	return Applied
}

// Remove deletes the entry for (owner, neighbor) and drops its reservation,
// so every generation issued so far is rejected. It reports whether an entry
// was present.
func (c *Cache) Remove(owner, neighbor topology.NodeID) bool {
	s := c.shard(owner)
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.keys, neighbor)
	if _, ok := s.load()[neighbor]; !ok {
		return false
	}
	s.publish(func(m entryMap) {
		delete(m, neighbor)
	})
	c.stats.removed.Add(1)
	return true
}

// Clear removes every entry of owner and drops all of its reservations. It
// returns the number of entries removed.
func (c *Cache) Clear(owner topology.NodeID) int {
	s := c.shard(owner)
	if s == nil {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys = make(map[topology.NodeID]*keyState)
	n := len(s.load())
	empty := entryMap{}
	s.snap.Store(&empty)
	c.stats.removed.Add(uint64(n))
	return n
}

// DropOwner forgets owner entirely. Writes still in flight for it report
// UnknownOwner. Use when the owner itself is destroyed.
func (c *Cache) DropOwner(owner topology.NodeID) int {
	c.mu.Lock()
	s, ok := c.owners[owner]
	delete(c.owners, owner)
	c.mu.Unlock()
	if !ok {
		return 0
	}

	// A worker that looked the shard up before the delete may still try to
	// write into it; with no reservations left that write is rejected.
	s.mu.Lock()
	n := len(s.load())
	s.keys = make(map[topology.NodeID]*keyState)
	empty := entryMap{}
	s.snap.Store(&empty)
	s.mu.Unlock()

	c.stats.removed.Add(uint64(n))
	return n
}

// Iterate yields every (neighbour, points) pair of owner from a single
// consistent snapshot. It never blocks writers; entries written after the
// iteration started are not seen. Empty or short sequences are yielded too.
func (c *Cache) Iterate(owner topology.NodeID) iter.Seq2[topology.NodeID, []curve.Vec2] {
	return func(yield func(topology.NodeID, []curve.Vec2) bool) {
		s := c.shard(owner)
		if s == nil {
			return
		}
		for id, e := range s.load() {
			if !yield(id, e.Points) {
				return
			}
		}
	}
}

// Entries returns a copy of owner's entries. Point slices are shared.
func (c *Cache) Entries(owner topology.NodeID) []Entry {
	s := c.shard(owner)
	if s == nil {
		return nil
	}
	m := s.load()
	out := make([]Entry, 0, len(m))
	for _, e := range m {
		out = append(out, *e)
	}
	return out
}

// Get returns the entry for (owner, neighbor).
func (c *Cache) Get(owner, neighbor topology.NodeID) (Entry, bool) {
	s := c.shard(owner)
	if s == nil {
		return Entry{}, false
	}
	e, ok := s.load()[neighbor]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of entries held for owner.
func (c *Cache) Len(owner topology.NodeID) int {
	s := c.shard(owner)
	if s == nil {
		return 0
	}
	return len(s.load())
}

// Owners returns every owner that has a shard.
func (c *Cache) Owners() []topology.NodeID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]topology.NodeID, 0, len(c.owners))
	for id := range c.owners {
		out = append(out, id)
	}
	return out
}

// Size returns the total number of entries across all owners.
func (c *Cache) Size() int {
	c.mu.RLock()
	shards := make([]*shard, 0, len(c.owners))
	for _, s := range c.owners {
		shards = append(shards, s)
	}
	c.mu.RUnlock()

	total := 0
	for _, s := range shards {
		total += len(s.load())
	}
	return total
}
