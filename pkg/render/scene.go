package render

import (
	"github.com/dd0wney/cluso-cables/pkg/curve"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

// Scene is one frame ready for a rasteriser.
type Scene struct {
	Nodes    []topology.Node
	Segments []Segment
	Viewport Viewport
}

// NewScene collects the cables of every live node in nodes and fits a
// viewport around the nodes and the sagging cables between them.
func NewScene[N topology.Node](c *Collector, nodes []N, width, height, padding float64) Scene {
	live := make([]topology.Node, 0, len(nodes))
	points := make([]curve.Vec2, 0, len(nodes))
	for _, n := range nodes {
		if n.IsDestroyed() {
			continue
		}
		live = append(live, n)
		points = append(points, n.ConnectionPoint())
	}

	segs := c.Frame(live)
	for _, s := range segs {
		points = append(points, s.From, s.To)
	}

	return Scene{
		Nodes:    live,
		Segments: segs,
		Viewport: Fit(points, width, height, padding),
	}
}
