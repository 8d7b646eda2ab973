// Package render turns cached cable geometry into drawable segments and
// rasterises them for the terminal viewer and the SVG snapshot endpoint.
package render

import (
	"github.com/dd0wney/cluso-cables/pkg/config"
	"github.com/dd0wney/cluso-cables/pkg/curve"
	"github.com/dd0wney/cluso-cables/pkg/geocache"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

// Resolver finds live nodes by ID. *topology.Network implements it.
type Resolver interface {
	Lookup(id topology.NodeID) (topology.Node, bool)
}

// Segment is one straight piece of a cable.
type Segment struct {
	Owner     topology.NodeID
	Neighbor  topology.NodeID
	From, To  curve.Vec2
	Material  Material
	Thickness float64
}

// Collector walks the geometry cache once per frame.
type Collector struct {
	cache     *geocache.Cache
	nodes     Resolver
	cfg       *config.Store
	materials *Materials
}

// NewCollector creates a collector. A nil store means default options.
func NewCollector(cache *geocache.Cache, nodes Resolver, cfg *config.Store) *Collector {
	if cfg == nil {
		cfg, _ = config.NewStore(config.DefaultCableOptions())
	}
	return &Collector{cache: cache, nodes: nodes, cfg: cfg, materials: NewMaterials()}
}

// Collect calls fn for every segment of every cable owned by owner, from a
// single snapshot of the owner's entries. Cables whose neighbour is gone or
// destroyed and sequences shorter than two points are skipped. Returning
// false from fn stops the walk; Collect then returns false as well.
func (c *Collector) Collect(owner topology.Node, fn func(Segment) bool) bool {
	if owner == nil || owner.IsDestroyed() {
		return true
	}
	mat := c.materials.For(owner.Color())
	thickness := c.cfg.Cables().CableThickness

	for nbID, pts := range c.cache.Iterate(owner.ID()) {
		if len(pts) < 2 {
			continue
		}
		nb, ok := c.nodes.Lookup(nbID)
		if !ok || nb.IsDestroyed() {
			continue
		}
		for i := 1; i < len(pts); i++ {
			seg := Segment{
				Owner:     owner.ID(),
				Neighbor:  nbID,
				From:      pts[i-1],
				To:        pts[i],
				Material:  mat,
				Thickness: thickness,
			}
			if !fn(seg) {
				return false
			}
		}
	}
	return true
}

// Frame collects the segments of every owner.
func (c *Collector) Frame(owners []topology.Node) []Segment {
	var out []Segment
	for _, o := range owners {
		c.Collect(o, func(s Segment) bool {
			out = append(out, s)
			return true
		})
	}
	return out
}
