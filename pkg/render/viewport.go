package render

import (
	"math"

	"github.com/dd0wney/cluso-cables/pkg/curve"
)

// Viewport maps a world rectangle onto a width x height target. World Y
// grows upwards, target Y grows downwards.
type Viewport struct {
	Min, Max      curve.Vec2
	Width, Height float64
	Padding       float64
}

// Fit returns a viewport enclosing every point. Degenerate extents are
// widened to one unit so a single node still lands in the middle.
func Fit(points []curve.Vec2, width, height, padding float64) Viewport {
	vp := Viewport{Width: width, Height: height, Padding: padding}
	if len(points) == 0 {
		vp.Max = curve.V(1, 1)
		return vp
	}

	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	minY, maxY := math.MaxFloat64, -math.MaxFloat64
	for _, p := range points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	if maxX-minX < 0.01 {
		minX, maxX = minX-0.5, maxX+0.5
	}
	if maxY-minY < 0.01 {
		minY, maxY = minY-0.5, maxY+0.5
	}
	vp.Min, vp.Max = curve.V(minX, minY), curve.V(maxX, maxY)
	return vp
}

// Project maps a world point to target coordinates.
func (v Viewport) Project(p curve.Vec2) (float64, float64) {
	rangeX := v.Max.X - v.Min.X
	rangeY := v.Max.Y - v.Min.Y
	if rangeX <= 0 {
		rangeX = 1
	}
	if rangeY <= 0 {
		rangeY = 1
	}

	targetWidth := v.Width - 2*v.Padding
	targetHeight := v.Height - 2*v.Padding

	x := v.Padding + ((p.X-v.Min.X)/rangeX)*targetWidth
	y := v.Padding + ((v.Max.Y-p.Y)/rangeY)*targetHeight
	return x, y
}
