package sim

import (
	"sort"

	"github.com/dd0wney/cluso-cables/pkg/curve"
	"github.com/dd0wney/cluso-cables/pkg/events"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

// Step advances the world by one tick and emits the resulting events.
func (w *World) Step() error {
	w.steps++
	w.t += timeStep

	if err := w.sway(); err != nil {
		return err
	}

	// Churn comes in gusts: the noise field scales how likely each slot is.
	gust := 0.5 + 0.5*w.noise.Eval2(w.t*0.7, 17)
	for i := 0; i < churnSlots; i++ {
		if w.rng.Float64() >= w.cfg.ChurnRate*gust {
			continue
		}
		if err := w.churn(); err != nil {
			return err
		}
	}
	return nil
}

// sway drifts poles around their base position along a noise field.
func (w *World) sway() error {
	for _, n := range w.nodes {
		if n.variant != topology.VariantPole {
			continue
		}
		dx := w.noise.Eval3(n.base.X*noiseScale, n.base.Y*noiseScale, w.t)
		dy := w.noise.Eval3(n.base.X*noiseScale+100, n.base.Y*noiseScale+100, w.t)
		next := n.base.Add(curve.V(dx, dy).Scale(swayAmount))
		if next.Dist(n.pos) < moveEpsilon {
			continue
		}
		n.pos = next
		if err := w.emit(events.Event{Kind: events.KindMove, Node: n.id, X: next.X, Y: next.Y}); err != nil {
			return err
		}
	}
	return nil
}

func (w *World) churn() error {
	if len(w.nodes) == 0 {
		return nil
	}
	switch w.rng.IntN(7) {
	case 0, 1:
		return w.linkRandom()
	case 2:
		return w.unlinkRandom()
	case 3:
		return w.rotateRandom()
	case 4:
		return w.restyleSelection()
	case 5:
		n := w.nodes[w.rng.IntN(len(w.nodes))]
		return w.emit(events.Event{Kind: events.KindReset, Node: n.id})
	default:
		return w.rebuildRandom()
	}
}

func (w *World) linkRandom() error {
	for i := 0; i < linkAttempts; i++ {
		n := w.nodes[w.rng.IntN(len(w.nodes))]
		ok, err := w.linkNearest(n)
		if ok || err != nil {
			return err
		}
	}
	return nil
}

// sortedLinks returns the link keys in a stable order.
func (w *World) sortedLinks() []pair {
	keys := make([]pair, 0, len(w.links))
	for p := range w.links {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a.String() < keys[j].a.String()
		}
		return keys[i].b.String() < keys[j].b.String()
	})
	return keys
}

func (w *World) unlinkRandom() error {
	keys := w.sortedLinks()
	if len(keys) == 0 {
		return nil
	}
	return w.unlink(keys[w.rng.IntN(len(keys))])
}

func (w *World) rotateRandom() error {
	var walls []*node
	for _, n := range w.nodes {
		if n.variant == topology.VariantWallConnector {
			walls = append(walls, n)
		}
	}
	if len(walls) == 0 {
		return nil
	}
	n := walls[w.rng.IntN(len(walls))]
	n.rot = n.rot.Rotated(1)
	return w.emit(events.Event{Kind: events.KindRotate, Node: n.id, Rotation: n.rot})
}

// restyleSelection picks a few nodes and cycles either their slack or
// their colour, as a player applying a command to a selection would.
func (w *World) restyleSelection() error {
	size := 1 + w.rng.IntN(3)
	seen := make(map[topology.NodeID]bool, size)
	var sel []*node
	for len(sel) < size && len(sel) < len(w.nodes) {
		n := w.nodes[w.rng.IntN(len(w.nodes))]
		if seen[n.id] {
			continue
		}
		seen[n.id] = true
		sel = append(sel, n)
	}
	ids := make([]topology.NodeID, len(sel))
	for i, n := range sel {
		ids[i] = n.id
	}

	if w.rng.IntN(2) == 0 {
		slack := sel[0].slack.Next()
		for _, n := range sel {
			n.slack = slack
		}
		return w.emit(events.Event{Kind: events.KindSlack, Slack: float64(slack), Nodes: ids})
	}
	color := sel[0].color.Next()
	for _, n := range sel {
		n.color = color
	}
	return w.emit(events.Event{Kind: events.KindColor, Color: color, Nodes: ids})
}

// rebuildRandom destroys a node and spawns a replacement of the same
// variant somewhere else.
func (w *World) rebuildRandom() error {
	i := w.rng.IntN(len(w.nodes))
	n := w.nodes[i]

	for p := range w.links {
		if p.a == n.id || p.b == n.id {
			delete(w.links, p)
			w.index[p.a].degree--
			w.index[p.b].degree--
		}
	}
	w.nodes = append(w.nodes[:i], w.nodes[i+1:]...)
	delete(w.index, n.id)
	if err := w.emit(events.Event{Kind: events.KindDestroy, Node: n.id}); err != nil {
		return err
	}

	if err := w.spawn(n.variant); err != nil {
		return err
	}
	_, err := w.linkNearest(w.nodes[len(w.nodes)-1])
	return err
}
