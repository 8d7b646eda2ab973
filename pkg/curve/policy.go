package curve

import "math"

// Cable shape constants. A slack of 1 sags the cable 1.2 units and puts the
// inner control points 23% of the way along the span.
const (
	SagPerSlack   = -1.2
	ReachPerSlack = 0.23

	// MinSamples and MaxSamples bound the number of points per cable.
	MinSamples = 10
	MaxSamples = 100

	// FloorSamples is the absolute minimum applied after clamping. With
	// MinSamples above it this never triggers; it stays as a guard in case
	// MinSamples is lowered.
	FloorSamples = 3
)

// Policy turns two endpoints and a slack value into a sampled cable.
type Policy struct {
	// SegmentsPerUnitDistance controls sample density along the span.
	SegmentsPerUnitDistance float64
}

// Shape is the full set of inputs handed to the curve evaluator.
type Shape struct {
	Start, Control1, Control2, End Vec2
	Samples                        int
}

// Sag returns the vertical offset applied to both inner control points.
func Sag(slack float64) float64 {
	return slack * SagPerSlack
}

// Reach returns how far along the span (0..1) the first inner control point sits.
func Reach(slack float64) float64 {
	return slack * ReachPerSlack
}

// ControlPoints returns the two inner control points for a cable from start
// to end with the given slack.
func (p Policy) ControlPoints(start, end Vec2, slack float64) (Vec2, Vec2) {
	sag := V(0, Sag(slack))
	reach := Reach(slack)

	midA := Lerp(start, end, reach)
	midB := Lerp(start, end, 1-reach)
	return midA.Add(sag), midB.Add(sag)
}

// SampleCount returns the number of points used for a span from start to end.
// It is non-decreasing in the span length and always within
// [MinSamples, MaxSamples].
func (p Policy) SampleCount(start, end Vec2) int {
	raw := math.Round(start.Dist(end) * p.SegmentsPerUnitDistance)

	var n int
	switch {
	case math.IsNaN(raw) || raw < MinSamples:
		n = MinSamples
	case raw > MaxSamples:
		n = MaxSamples
	default:
		n = int(raw)
	}

	if n < FloorSamples {
		n = FloorSamples
	}
	return n
}

// Shape derives the evaluator inputs for a cable.
func (p Policy) Shape(start, end Vec2, slack float64) Shape {
	c1, c2 := p.ControlPoints(start, end, slack)
	return Shape{
		Start:    start,
		Control1: c1,
		Control2: c2,
		End:      end,
		Samples:  p.SampleCount(start, end),
	}
}

// Points samples the cable from start to end.
func (p Policy) Points(start, end Vec2, slack float64) []Vec2 {
	s := p.Shape(start, end, slack)
	return EvaluateCubic(s.Start, s.Control1, s.Control2, s.End, s.Samples)
}

// LinkPoints is Policy{segmentsPerUnit}.Points(start, end, slack).
func LinkPoints(start, end Vec2, slack, segmentsPerUnit float64) []Vec2 {
	return Policy{SegmentsPerUnitDistance: segmentsPerUnit}.Points(start, end, slack)
}
