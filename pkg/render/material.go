package render

import (
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-cables/pkg/topology"
)

// Material is how a cable colour is drawn.
type Material struct {
	Color topology.RGBA
	// Hex is "#rrggbb", usable by lipgloss and SVG.
	Hex string
	// Opacity is alpha in 0..1.
	Opacity float64
}

// Materials caches one Material per distinct colour.
type Materials struct {
	mu    sync.RWMutex
	cache map[topology.RGBA]Material
}

func NewMaterials() *Materials {
	return &Materials{cache: make(map[topology.RGBA]Material)}
}

// For returns the material of a cable colour selector.
func (m *Materials) For(c topology.CableColor) Material {
	return m.Get(c.RGBA())
}

// Get returns the cached material for rgba, creating it on first use.
func (m *Materials) Get(rgba topology.RGBA) Material {
	m.mu.RLock()
	mat, ok := m.cache[rgba]
	m.mu.RUnlock()
	if ok {
		return mat
	}

	mat = Material{
		Color:   rgba,
		Hex:     fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B),
		Opacity: float64(rgba.A) / 255,
	}
	m.mu.Lock()
	m.cache[rgba] = mat
	m.mu.Unlock()
	return mat
}

// Len returns the number of cached materials.
func (m *Materials) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}
