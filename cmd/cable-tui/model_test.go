package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-cables/pkg/config"
	"github.com/dd0wney/cluso-cables/pkg/logging"
	"github.com/dd0wney/cluso-cables/pkg/render"
	"github.com/dd0wney/cluso-cables/pkg/scheduler"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

func testModel(t *testing.T) model {
	t.Helper()
	cfg := config.Default()
	cfg.Sim.Poles, cfg.Sim.Walls = 4, 1
	cfg.Sim.Width, cfg.Sim.Height = 10, 10

	a, err := newApp(cfg, scheduler.Inline{}, nil, logging.NewNopLogger())
	require.NoError(t, err)
	require.NotEmpty(t, a.net.Links())

	m, _ := initialModel(a, cfg.Sim.Tick, nil).Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	return m.(model)
}

func press(m model, k tea.KeyMsg) model {
	next, _ := m.Update(k)
	return next.(model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSlackKeyAppliesToEveryNode(t *testing.T) {
	m := press(testModel(t), runes("s"))

	want := topology.DefaultSlack.Next()
	for _, n := range m.app.net.Nodes() {
		assert.Equal(t, want, n.Slack())
	}
	assert.False(t, m.messageErr)
}

func TestColorKeyAppliesToEveryNode(t *testing.T) {
	m := press(testModel(t), runes("c"))

	for _, n := range m.app.net.Nodes() {
		assert.Equal(t, topology.Tin, n.Color())
	}
}

func TestDensityKeysRegenerate(t *testing.T) {
	m := testModel(t)
	l := m.app.net.Links()[0]
	before, ok := m.app.cache.Get(l.Owner, l.Neighbor)
	require.True(t, ok)

	m = press(m, runes("+"))
	assert.InDelta(t, 1.25, m.app.store.Cables().SegmentsPerUnitDistance, 1e-9)

	after, ok := m.app.cache.Get(l.Owner, l.Neighbor)
	require.True(t, ok)
	assert.Greater(t, after.Generation, before.Generation)

	m = press(m, runes("-"))
	m = press(m, runes("-"))
	assert.InDelta(t, 0.75, m.app.store.Cables().SegmentsPerUnitDistance, 1e-9)
}

func TestDensityIsClamped(t *testing.T) {
	m := testModel(t)
	for i := 0; i < 20; i++ {
		m = press(m, runes("-"))
	}
	assert.InDelta(t, minDensity, m.app.store.Cables().SegmentsPerUnitDistance, 1e-9)
}

func TestResetKeepsGeometry(t *testing.T) {
	m := testModel(t)
	size := m.app.cache.Size()

	m = press(m, runes("r"))
	assert.Equal(t, size, m.app.cache.Size())
	assert.Equal(t, "links reset", m.message)
}

func TestPauseStopsTheSimulation(t *testing.T) {
	m := press(testModel(t), tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	require.True(t, m.paused)

	next, cmd := m.Update(tickMsg{})
	assert.Equal(t, 0, next.(model).app.world.Steps())
	assert.NotNil(t, cmd)

	m = press(next.(model), tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	next, _ = m.Update(tickMsg{})
	assert.Equal(t, 1, next.(model).app.world.Steps())
}

func TestNoticesAreCounted(t *testing.T) {
	m := testModel(t)
	next, _ := m.Update(noticeMsg{})
	assert.Equal(t, 1, next.(model).updates)
}

func TestView(t *testing.T) {
	m := testModel(t)
	out := m.View()
	assert.Contains(t, out, "Cluso Cables")
	assert.Contains(t, out, "nodes 5")
	assert.Contains(t, out, "cycle slack")
}

func TestColorizeKeepsText(t *testing.T) {
	c := render.NewCanvas(5, 2)
	c.Set(0, 0, render.Cell{Rune: 'o'})
	c.Set(1, 0, render.Cell{Rune: '-', Hex: "#96550b"})
	c.Set(2, 0, render.Cell{Rune: '-', Hex: "#96550b"})

	out := colorize(c)
	assert.Equal(t, 2, strings.Count(out, "-"))
	assert.Equal(t, 1, strings.Count(out, "o"))
	assert.Equal(t, 1, strings.Count(out, "\n"))
}
