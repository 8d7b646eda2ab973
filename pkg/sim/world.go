// Package sim is a small deterministic world of poles and wall connectors
// that keeps changing: poles sway, links come and go, selections get new
// slack or colour, and nodes are torn down and rebuilt. Every change is
// emitted as an events.Event, so the same world can drive a local network
// or a remote one.
package sim

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/dd0wney/cluso-cables/pkg/config"
	"github.com/dd0wney/cluso-cables/pkg/curve"
	"github.com/dd0wney/cluso-cables/pkg/events"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

const (
	noiseScale   = 0.05
	timeStep     = 0.05
	swayAmount   = 1.5
	moveEpsilon  = 0.05
	maxDegree    = 3
	churnSlots   = 3
	linkAttempts = 8
)

type node struct {
	id      topology.NodeID
	variant topology.Variant
	base    curve.Vec2
	pos     curve.Vec2
	rot     topology.Rotation
	slack   topology.Slack
	color   topology.CableColor
	degree  int
}

type pair struct{ a, b topology.NodeID }

func pairOf(a, b topology.NodeID) pair {
	if a.String() > b.String() {
		a, b = b, a
	}
	return pair{a, b}
}

// World is the simulation state. It is not safe for concurrent use.
type World struct {
	cfg     config.SimConfig
	maxDist float64
	out     events.Applier

	noise opensimplex.Noise
	rng   *rand.Rand

	nodes []*node
	index map[topology.NodeID]*node
	links map[pair]topology.NodeID // pair -> owner

	t     float64
	steps int
}

// New creates an empty world. maxLinkDistance bounds which pairs may link.
func New(cfg config.SimConfig, maxLinkDistance float64, out events.Applier) *World {
	seed := uint64(cfg.Seed)
	return &World{
		cfg:     cfg,
		maxDist: maxLinkDistance,
		out:     out,
		noise:   opensimplex.New(cfg.Seed),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		index:   make(map[topology.NodeID]*node),
		links:   make(map[pair]topology.NodeID),
	}
}

// idSource feeds uuid generation from the world's random source so node
// IDs are reproducible for a given seed.
type idSource struct{ rng *rand.Rand }

func (s idSource) Read(p []byte) (int, error) {
	var buf [8]byte
	for i := 0; i < len(p); i += 8 {
		binary.LittleEndian.PutUint64(buf[:], s.rng.Uint64())
		copy(p[i:], buf[:])
	}
	return len(p), nil
}

func (w *World) emit(e events.Event) error {
	if err := w.out.Apply(e); err != nil {
		return fmt.Errorf("sim step %d: %s: %w", w.steps, e.Kind, err)
	}
	return nil
}

// Populate spawns the configured poles and walls and links nearby pairs.
func (w *World) Populate() error {
	for i := 0; i < w.cfg.Poles; i++ {
		if err := w.spawn(topology.VariantPole); err != nil {
			return err
		}
	}
	for i := 0; i < w.cfg.Walls; i++ {
		if err := w.spawn(topology.VariantWallConnector); err != nil {
			return err
		}
	}
	for _, n := range w.nodes {
		if _, err := w.linkNearest(n); err != nil {
			return err
		}
	}
	return nil
}

func (w *World) spawn(v topology.Variant) error {
	id, err := uuid.NewRandomFromReader(idSource{w.rng})
	if err != nil {
		return err
	}
	pos := curve.V(w.rng.Float64()*w.cfg.Width, w.rng.Float64()*w.cfg.Height)
	n := &node{
		id:      id,
		variant: v,
		base:    pos,
		pos:     pos,
		slack:   topology.DefaultSlack,
		color:   topology.Copper,
	}
	if v == topology.VariantWallConnector {
		n.rot = topology.Rotation(w.rng.IntN(4))
	}
	w.nodes = append(w.nodes, n)
	w.index[id] = n
	return w.emit(events.Event{Kind: events.KindSpawn, Node: id, Variant: v, X: pos.X, Y: pos.Y, Rotation: n.rot})
}

// linkNearest links n to its closest eligible node. It reports whether a
// link was made.
func (w *World) linkNearest(n *node) (bool, error) {
	if n.degree >= maxDegree {
		return false, nil
	}
	var best *node
	bestDist := math.Inf(1)
	for _, o := range w.nodes {
		if o == n || o.degree >= maxDegree {
			continue
		}
		if _, linked := w.links[pairOf(n.id, o.id)]; linked {
			continue
		}
		if d := n.pos.Dist(o.pos); d <= w.maxDist && d < bestDist {
			best, bestDist = o, d
		}
	}
	if best == nil {
		return false, nil
	}
	return true, w.link(n, best)
}

func (w *World) link(owner, neighbor *node) error {
	w.links[pairOf(owner.id, neighbor.id)] = owner.id
	owner.degree++
	neighbor.degree++
	return w.emit(events.Event{Kind: events.KindLink, Node: owner.id, Peer: neighbor.id})
}

func (w *World) unlink(p pair) error {
	owner := w.links[p]
	delete(w.links, p)
	w.index[p.a].degree--
	w.index[p.b].degree--
	peer := p.a
	if peer == owner {
		peer = p.b
	}
	return w.emit(events.Event{Kind: events.KindUnlink, Node: owner, Peer: peer})
}

// Nodes returns the number of live nodes.
func (w *World) Nodes() int { return len(w.nodes) }

// Links returns the number of live links.
func (w *World) Links() int { return len(w.links) }

// Steps returns how many times Step has run.
func (w *World) Steps() int { return w.steps }

// NodeIDs returns the live node IDs in spawn order.
func (w *World) NodeIDs() []topology.NodeID {
	out := make([]topology.NodeID, len(w.nodes))
	for i, n := range w.nodes {
		out[i] = n.id
	}
	return out
}
