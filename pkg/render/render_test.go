package render

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-cables/pkg/curve"
	"github.com/dd0wney/cluso-cables/pkg/geocache"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

type fixture struct {
	net   *topology.Network
	cache *geocache.Cache
	a, b  *topology.Pole
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		net:   topology.NewNetwork(),
		cache: geocache.New(),
		a:     topology.NewPole(topology.NewNodeID(), curve.V(0, 0)),
		b:     topology.NewPole(topology.NewNodeID(), curve.V(10, 0)),
	}
	require.NoError(t, f.net.Add(f.a))
	require.NoError(t, f.net.Add(f.b))
	return f
}

func (f fixture) store(pts []curve.Vec2) {
	gen := f.cache.Reserve(f.a.ID(), f.b.ID())
	f.cache.Upsert(f.a.ID(), f.b.ID(), gen, pts)
}

func TestCollect_EmitsConsecutivePairs(t *testing.T) {
	f := newFixture(t)
	f.store(curve.LinkPoints(curve.V(0, 0), curve.V(10, 0), 1, 1))
	require.NoError(t, f.a.SetColor(topology.Gold))

	c := NewCollector(f.cache, f.net, nil)
	segs := c.Frame([]topology.Node{f.a, f.b})

	require.Len(t, segs, 9)
	assert.Equal(t, curve.V(0, 0), segs[0].From)
	for i := 1; i < len(segs); i++ {
		assert.Equal(t, segs[i-1].To, segs[i].From)
	}
	assert.True(t, segs[8].To.ApproxEqual(curve.V(10, 0), 1e-9))
	assert.Equal(t, "#e8dd3f", segs[0].Material.Hex)
	assert.Equal(t, 0.15, segs[0].Thickness)
}

func TestCollect_SkipsDestroyedNeighbor(t *testing.T) {
	f := newFixture(t)
	f.store(curve.LinkPoints(curve.V(0, 0), curve.V(10, 0), 1, 1))
	f.b.Destroy()

	c := NewCollector(f.cache, f.net, nil)
	assert.Empty(t, c.Frame([]topology.Node{f.a}))
}

func TestCollect_SkipsUnknownNeighbor(t *testing.T) {
	f := newFixture(t)
	f.store(curve.LinkPoints(curve.V(0, 0), curve.V(10, 0), 1, 1))
	require.NoError(t, f.net.Destroy(f.b.ID()))

	c := NewCollector(f.cache, f.net, nil)
	assert.Empty(t, c.Frame([]topology.Node{f.a}))
}

func TestCollect_SkipsShortSequences(t *testing.T) {
	f := newFixture(t)
	f.cache.Reserve(f.a.ID(), f.b.ID())

	c := NewCollector(f.cache, f.net, nil)
	assert.Empty(t, c.Frame([]topology.Node{f.a}), "pending entry has no points")

	f.store([]curve.Vec2{curve.V(0, 0)})
	assert.Empty(t, c.Frame([]topology.Node{f.a}))
}

func TestCollect_StopsEarly(t *testing.T) {
	f := newFixture(t)
	f.store(curve.LinkPoints(curve.V(0, 0), curve.V(10, 0), 1, 1))

	c := NewCollector(f.cache, f.net, nil)
	n := 0
	done := c.Collect(f.a, func(Segment) bool {
		n++
		return n < 3
	})
	assert.False(t, done)
	assert.Equal(t, 3, n)
}

func TestMaterials(t *testing.T) {
	m := NewMaterials()
	copper := m.For(topology.Copper)
	assert.Equal(t, "#96550b", copper.Hex)
	assert.Equal(t, 1.0, copper.Opacity)

	m.For(topology.Copper)
	m.For(topology.CableColor(42))
	assert.Equal(t, 1, m.Len(), "unknown selector falls back to copper")
	m.For(topology.Rubber)
	assert.Equal(t, 2, m.Len())
}

func TestViewport(t *testing.T) {
	vp := Fit([]curve.Vec2{curve.V(0, 0), curve.V(10, 5)}, 100, 50, 0)

	x, y := vp.Project(curve.V(0, 0))
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9, "world origin is bottom left")

	x, y = vp.Project(curve.V(10, 5))
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)
}

func TestViewport_Degenerate(t *testing.T) {
	vp := Fit([]curve.Vec2{curve.V(3, 3)}, 20, 20, 0)
	x, y := vp.Project(curve.V(3, 3))
	assert.InDelta(t, 10, x, 1e-9)
	assert.InDelta(t, 10, y, 1e-9)

	empty := Fit(nil, 20, 20, 0)
	assert.Equal(t, curve.V(1, 1), empty.Max)
}

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(5, 3)
	c.Line(0, 1, 4, 1, Cell{Rune: '-'})
	assert.Equal(t, []string{"     ", "-----", "     "}, c.Rows())

	c.Clear()
	c.Line(0, 0, 2, 2, Cell{Rune: '\\'})
	assert.Equal(t, '\\', c.At(1, 1).Rune)
	assert.Equal(t, '\\', c.At(2, 2).Rune)

	c.Set(-1, 0, Cell{Rune: 'x'})
	c.Set(9, 9, Cell{Rune: 'x'})
	assert.NotContains(t, c.String(), "x")
}

func TestCanvasDrawsCablesAndNodes(t *testing.T) {
	f := newFixture(t)
	f.store(curve.LinkPoints(curve.V(0, 0), curve.V(10, 0), 1, 1))
	segs := NewCollector(f.cache, f.net, nil).Frame([]topology.Node{f.a})
	nodes := []topology.Node{f.a, f.b}

	vp := Fit([]curve.Vec2{curve.V(0, -2), curve.V(10, 1)}, 40, 10, 1)
	c := NewCanvas(40, 10)
	c.DrawSegments(segs, vp)
	c.DrawNodes(nodes, vp)

	out := c.String()
	assert.Equal(t, 2, strings.Count(out, "o"))
	assert.Contains(t, out, "-")
}

func TestSlopeGlyph(t *testing.T) {
	assert.Equal(t, '-', slopeGlyph(5, 1))
	assert.Equal(t, '|', slopeGlyph(0, 3))
	assert.Equal(t, '\\', slopeGlyph(2, 2))
	assert.Equal(t, '/', slopeGlyph(2, -2))
	assert.Equal(t, '.', slopeGlyph(0, 0))
}

func TestWriteSVG(t *testing.T) {
	f := newFixture(t)
	f.store(curve.LinkPoints(curve.V(0, 0), curve.V(10, 0), 1, 1))
	segs := NewCollector(f.cache, f.net, nil).Frame([]topology.Node{f.a})

	var buf bytes.Buffer
	vp := Fit([]curve.Vec2{curve.V(0, -2), curve.V(10, 1)}, 200, 100, 10)
	require.NoError(t, WriteSVG(&buf, segs, []topology.Node{f.a, f.b}, vp))

	var doc struct {
		XMLName xml.Name
		Lines   []struct{} `xml:"g>line"`
		Circles []struct{} `xml:"circle"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "svg", doc.XMLName.Local)
	assert.Len(t, doc.Lines, 9)
	assert.Len(t, doc.Circles, 2)
}

func TestNewScene(t *testing.T) {
	f := newFixture(t)
	f.store(curve.LinkPoints(curve.V(0, 0), curve.V(10, 0), 1, 1))

	gone := topology.NewPole(topology.NewNodeID(), curve.V(50, 50))
	gone.Destroy()

	sc := NewScene(NewCollector(f.cache, f.net, nil), []*topology.Pole{f.a, f.b, gone}, 80, 40, 1)
	assert.Len(t, sc.Nodes, 2)
	assert.Len(t, sc.Segments, 9)
	assert.Less(t, sc.Viewport.Min.Y, 0.0, "viewport includes the sag below the poles")
	assert.InDelta(t, 10.0, sc.Viewport.Max.X, 1e-9)
}
