package scheduler

import (
	"github.com/dd0wney/cluso-cables/pkg/config"
	"github.com/dd0wney/cluso-cables/pkg/curve"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

// Job is one unit of background work. Everything the computation needs is
// copied in at trigger time; the node references are only used for the
// liveness checks.
type Job struct {
	Owner      topology.Node
	Neighbor   topology.Node
	Generation uint64

	Start   curve.Vec2
	End     curve.Vec2
	Slack   topology.Slack
	Options config.CableOptions
}

// Live reports whether both endpoints still exist.
func (j Job) Live() bool {
	return !j.Owner.IsDestroyed() && !j.Neighbor.IsDestroyed()
}

// Compute evaluates the cable for the snapshot.
func (j Job) Compute() []curve.Vec2 {
	p := curve.Policy{SegmentsPerUnitDistance: j.Options.SegmentsPerUnitDistance}
	return p.Points(j.Start, j.End, float64(j.Slack))
}
