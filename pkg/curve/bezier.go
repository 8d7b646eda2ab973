package curve

// CubicAt evaluates the cubic Bézier defined by p0..p3 at parameter t.
//
// p(t) = p0*(1-t)^3 + 3*p1*(1-t)^2*t + 3*p2*(1-t)*t^2 + p3*t^3
func CubicAt(t float64, p0, p1, p2, p3 Vec2) Vec2 {
	m := 1 - t
	mm := m * m
	tt := t * t

	b0 := mm * m
	b1 := 3 * mm * t
	b2 := 3 * m * tt
	b3 := tt * t

	return Vec2{
		X: p0.X*b0 + p1.X*b1 + p2.X*b2 + p3.X*b3,
		Y: p0.Y*b0 + p1.Y*b1 + p2.Y*b2 + p3.Y*b3,
	}
}

// EvaluateCubic samples the cubic Bézier p0..p3 at n uniformly spaced values
// of t in [0, 1], both ends included. The first sample is exactly p0 and the
// last exactly p3.
//
// n < 2 is a caller bug and panics.
func EvaluateCubic(p0, p1, p2, p3 Vec2, n int) []Vec2 {
	if n < 2 {
		panic("curve: EvaluateCubic needs at least 2 samples")
	}

	points := make([]Vec2, n)
	last := n - 1
	for i := 0; i < n; i++ {
		t := float64(i) / float64(last)
		points[i] = CubicAt(t, p0, p1, p2, p3)
	}

	// Pin the endpoints so callers can rely on exact equality.
	points[0] = p0
	points[last] = p3
	return points
}
