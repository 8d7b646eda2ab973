package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-cables/pkg/config"
	"github.com/dd0wney/cluso-cables/pkg/curve"
	"github.com/dd0wney/cluso-cables/pkg/events"
	"github.com/dd0wney/cluso-cables/pkg/geocache"
	"github.com/dd0wney/cluso-cables/pkg/scheduler"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

func testConfig() config.SimConfig {
	cfg := config.Default().Sim
	cfg.ChurnRate = 0.8
	return cfg
}

type recorder struct{ events []events.Event }

func (r *recorder) Apply(e events.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) count(k events.Kind) int {
	n := 0
	for _, e := range r.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func TestPopulate(t *testing.T) {
	rec := &recorder{}
	cfg := testConfig()
	w := New(cfg, 20, rec)
	require.NoError(t, w.Populate())

	assert.Equal(t, cfg.Poles+cfg.Walls, rec.count(events.KindSpawn))
	assert.Equal(t, cfg.Poles+cfg.Walls, w.Nodes())
	assert.Equal(t, w.Links(), rec.count(events.KindLink))

	pos := map[topology.NodeID]curve.Vec2{}
	for _, e := range rec.events {
		switch e.Kind {
		case events.KindSpawn:
			assert.True(t, e.X >= 0 && e.X <= cfg.Width)
			assert.True(t, e.Y >= 0 && e.Y <= cfg.Height)
			pos[e.Node] = curve.V(e.X, e.Y)
		case events.KindLink:
			assert.LessOrEqual(t, pos[e.Node].Dist(pos[e.Peer]), 20.0)
		}
	}
}

func TestDeterministic(t *testing.T) {
	run := func() []events.Event {
		rec := &recorder{}
		w := New(testConfig(), 20, rec)
		require.NoError(t, w.Populate())
		for i := 0; i < 50; i++ {
			require.NoError(t, w.Step())
		}
		return rec.events
	}
	assert.Equal(t, run(), run())
}

func TestDrivesNetworkWithoutErrors(t *testing.T) {
	net := topology.NewNetwork()
	cache := geocache.New()
	sched, err := scheduler.New(cache, scheduler.Options{Executor: scheduler.Inline{}})
	require.NoError(t, err)
	net.Observe(sched)

	w := New(testConfig(), 20, events.NetworkApplier{Net: net})
	require.NoError(t, w.Populate())
	for i := 0; i < 300; i++ {
		require.NoError(t, w.Step(), "step %d", i)
	}

	assert.Equal(t, 300, w.Steps())
	assert.Equal(t, w.Nodes(), net.Len())
	assert.Len(t, net.Links(), w.Links())
	assert.ElementsMatch(t, w.NodeIDs(), func() []topology.NodeID {
		var ids []topology.NodeID
		for _, n := range net.Nodes() {
			ids = append(ids, n.ID())
		}
		return ids
	}())

	// Every live link has a drawable cable on its owning side.
	for _, l := range net.Links() {
		e, ok := cache.Get(l.Owner, l.Neighbor)
		require.True(t, ok)
		assert.True(t, e.Populated())
	}
	// And nothing else is cached.
	total := 0
	for _, owner := range cache.Owners() {
		total += cache.Len(owner)
	}
	assert.Equal(t, len(net.Links()), total)
}

func TestChurnProducesEveryKind(t *testing.T) {
	rec := &recorder{}
	cfg := testConfig()
	cfg.ChurnRate = 1
	w := New(cfg, 20, rec)
	require.NoError(t, w.Populate())
	for i := 0; i < 500; i++ {
		require.NoError(t, w.Step())
	}
	for _, k := range events.Kinds() {
		assert.Positive(t, rec.count(k), "no %s events", k)
	}
}

func TestZeroChurnOnlySways(t *testing.T) {
	rec := &recorder{}
	cfg := testConfig()
	cfg.ChurnRate = 0
	w := New(cfg, 20, rec)
	require.NoError(t, w.Populate())
	before := len(rec.events)
	for i := 0; i < 20; i++ {
		require.NoError(t, w.Step())
	}
	for _, e := range rec.events[before:] {
		assert.Equal(t, events.KindMove, e.Kind)
	}
}
