package render

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dd0wney/cluso-cables/pkg/topology"
)

// SVGScale is the number of SVG user units per world unit used by WriteSVG
// when sizing strokes.
const SVGScale = 10.0

// WriteSVG renders nodes and cable segments as an SVG document.
func WriteSVG(w io.Writer, segs []Segment, nodes []topology.Node, vp Viewport) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">`+"\n",
		vp.Width, vp.Height, vp.Width, vp.Height)
	fmt.Fprintf(bw, `<rect width="100%%" height="100%%" fill="#1b1b1f"/>`+"\n")

	bw.WriteString(`<g stroke-linecap="round">` + "\n")
	for _, s := range segs {
		x0, y0 := vp.Project(s.From)
		x1, y1 := vp.Project(s.To)
		fmt.Fprintf(bw, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-opacity="%.2f" stroke-width="%.2f"/>`+"\n",
			x0, y0, x1, y1, s.Material.Hex, s.Material.Opacity, s.Thickness*SVGScale)
	}
	bw.WriteString("</g>\n")

	for _, n := range nodes {
		if n.IsDestroyed() {
			continue
		}
		x, y := vp.Project(n.ConnectionPoint())
		fmt.Fprintf(bw, `<circle cx="%.2f" cy="%.2f" r="3" fill="#e0e0e0"><title>%s</title></circle>`+"\n",
			x, y, n.ID())
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}
