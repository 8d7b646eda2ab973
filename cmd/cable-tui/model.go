package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-cables/pkg/config"
	"github.com/dd0wney/cluso-cables/pkg/events"
	"github.com/dd0wney/cluso-cables/pkg/geocache"
	"github.com/dd0wney/cluso-cables/pkg/logging"
	"github.com/dd0wney/cluso-cables/pkg/pubsub"
	"github.com/dd0wney/cluso-cables/pkg/render"
	"github.com/dd0wney/cluso-cables/pkg/scheduler"
	"github.com/dd0wney/cluso-cables/pkg/sim"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(1)

	pausedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFF00"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginLeft(1)

	nodeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E0E0E0"))
)

// Density bounds and step for the +/- keys, in segments per unit distance.
const (
	densityStep = 0.25
	minDensity  = 0.25
	maxDensity  = 4.0
)

// chromeLines is the number of rows taken by the title, status and help.
const chromeLines = 5

type keyMap struct {
	Slack   key.Binding
	Color   key.Binding
	Reset   key.Binding
	Denser  key.Binding
	Sparser key.Binding
	Pause   key.Binding
	Help    key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Slack: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "cycle slack"),
	),
	Color: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "cycle colour"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset links"),
	),
	Denser: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "more segments"),
	),
	Sparser: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "fewer segments"),
	),
	Pause: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "pause"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Slack, k.Color, k.Reset, k.Pause, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Slack, k.Color, k.Reset},
		{k.Denser, k.Sparser},
		{k.Pause, k.Help, k.Quit},
	}
}

// app holds the shared pipeline the model drives. The model is copied on
// every Update, so everything mutable lives behind this pointer.
type app struct {
	net       *topology.Network
	cache     *geocache.Cache
	sched     *scheduler.Scheduler
	store     *config.Store
	world     *sim.World
	applier   events.Applier
	collector *render.Collector
	log       logging.Logger
}

func newApp(cfg config.Config, exec scheduler.Executor, notices *pubsub.PubSub, log logging.Logger) (*app, error) {
	store, err := config.NewStore(cfg.Cables)
	if err != nil {
		return nil, err
	}
	cache := geocache.New()
	sched, err := scheduler.New(cache, scheduler.Options{
		Executor: exec,
		Config:   store,
		Logger:   log,
		Notices:  notices,
	})
	if err != nil {
		return nil, err
	}

	net := topology.NewNetwork()
	net.Observe(sched)

	a := &app{
		net:       net,
		cache:     cache,
		sched:     sched,
		store:     store,
		applier:   events.NetworkApplier{Net: net},
		collector: render.NewCollector(cache, net, store),
		log:       log,
	}
	a.world = sim.New(cfg.Sim, cfg.Cables.MaxLinkDistance, a.applier)
	store.OnChange(func(config.CableOptions) { net.Refresh() })

	if err := a.world.Populate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) nodeIDs() []topology.NodeID {
	nodes := a.net.Nodes()
	ids := make([]topology.NodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	return ids
}

type model struct {
	app *app

	slack topology.Slack
	color topology.CableColor

	help       help.Model
	keys       keyMap
	width      int
	height     int
	tick       time.Duration
	paused     bool
	notices    <-chan pubsub.Notice
	updates    int
	message    string
	messageErr bool
}

type tickMsg time.Time

type noticeMsg pubsub.Notice

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForNotice turns the next geometry notice into a message.
func waitForNotice(ch <-chan pubsub.Notice) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

func initialModel(a *app, tick time.Duration, notices <-chan pubsub.Notice) model {
	return model{
		app:     a,
		slack:   topology.DefaultSlack,
		color:   topology.Copper,
		help:    help.New(),
		keys:    keys,
		tick:    tick,
		notices: notices,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.tick), waitForNotice(m.notices))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		if !m.paused {
			if err := m.app.world.Step(); err != nil {
				m.app.log.Warn("simulation step failed", logging.Error(err))
				m.setMessage(err.Error(), true)
			}
		}
		return m, tickCmd(m.tick)

	case noticeMsg:
		m.updates++
		return m, waitForNotice(m.notices)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Slack):
			m.slack = m.slack.Next()
			m.apply(events.Event{Kind: events.KindSlack, Slack: float64(m.slack), Nodes: m.app.nodeIDs()},
				"slack "+m.slack.String())

		case key.Matches(msg, m.keys.Color):
			m.color = m.color.Next()
			m.apply(events.Event{Kind: events.KindColor, Color: m.color, Nodes: m.app.nodeIDs()},
				"colour "+m.color.String())

		case key.Matches(msg, m.keys.Reset):
			m.resetAll()

		case key.Matches(msg, m.keys.Denser):
			m.adjustDensity(densityStep)

		case key.Matches(msg, m.keys.Sparser):
			m.adjustDensity(-densityStep)

		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

func (m *model) setMessage(msg string, isErr bool) {
	m.message = msg
	m.messageErr = isErr
}

func (m *model) apply(e events.Event, done string) {
	if err := m.app.applier.Apply(e); err != nil {
		m.setMessage(err.Error(), true)
		return
	}
	m.setMessage(done, false)
}

func (m *model) resetAll() {
	for _, id := range m.app.nodeIDs() {
		if err := m.app.applier.Apply(events.Event{Kind: events.KindReset, Node: id}); err != nil {
			m.setMessage(err.Error(), true)
			return
		}
	}
	m.setMessage("links reset", false)
}

func (m *model) adjustDensity(delta float64) {
	opts, err := m.app.store.Update(func(o *config.CableOptions) {
		v := math.Round((o.SegmentsPerUnitDistance+delta)/densityStep) * densityStep
		o.SegmentsPerUnitDistance = math.Min(maxDensity, math.Max(minDensity, v))
	})
	if err != nil {
		m.setMessage(err.Error(), true)
		return
	}
	m.setMessage(fmt.Sprintf("%.2f segments/unit", opts.SegmentsPerUnitDistance), false)
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("Cluso Cables"))
	s.WriteString("\n")

	w := m.width - 2
	h := m.height - chromeLines
	if w < 10 {
		w = 10
	}
	if h < 5 {
		h = 5
	}
	s.WriteString(m.renderCanvas(w, h))
	s.WriteString("\n")

	s.WriteString(m.renderStatus())
	s.WriteString("\n")

	if m.message != "" {
		if m.messageErr {
			s.WriteString(errorStyle.Render(" ✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render(" ✓ " + m.message))
		}
	}
	s.WriteString("\n")

	s.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return s.String()
}

func (m model) renderCanvas(w, h int) string {
	scene := render.NewScene(m.app.collector, m.app.net.Nodes(), float64(w-1), float64(h-1), 1)
	c := render.NewCanvas(w, h)
	c.DrawSegments(scene.Segments, scene.Viewport)
	c.DrawNodes(scene.Nodes, scene.Viewport)
	return colorize(c)
}

// colorize renders the canvas with each run of same-coloured cells styled
// once.
func colorize(c *render.Canvas) string {
	styles := make(map[string]lipgloss.Style)
	styleFor := func(cell render.Cell) lipgloss.Style {
		if cell.Hex == "" {
			if cell.Rune == 'o' || cell.Rune == '#' {
				return nodeStyle
			}
			return lipgloss.NewStyle()
		}
		st, ok := styles[cell.Hex]
		if !ok {
			st = lipgloss.NewStyle().Foreground(lipgloss.Color(cell.Hex))
			styles[cell.Hex] = st
		}
		return st
	}

	var out strings.Builder
	var run strings.Builder
	for y := 0; y < c.Height(); y++ {
		if y > 0 {
			out.WriteString("\n")
		}
		out.WriteString(" ")
		var cur render.Cell
		flush := func() {
			if run.Len() > 0 {
				out.WriteString(styleFor(cur).Render(run.String()))
				run.Reset()
			}
		}
		for x := 0; x < c.Width(); x++ {
			cell := c.At(x, y)
			if x > 0 && !sameStyle(cell, cur) {
				flush()
			}
			cur = cell
			run.WriteRune(cell.Rune)
		}
		flush()
	}
	return out.String()
}

func sameStyle(a, b render.Cell) bool {
	isNode := func(c render.Cell) bool { return c.Hex == "" && (c.Rune == 'o' || c.Rune == '#') }
	return a.Hex == b.Hex && isNode(a) == isNode(b)
}

func (m model) renderStatus() string {
	opts := m.app.store.Cables()
	status := fmt.Sprintf("nodes %d  links %d  cached %d  updates %d  step %d  slack %s  colour %s  density %.2f",
		m.app.net.Len(),
		len(m.app.net.Links()),
		m.app.cache.Size(),
		m.updates,
		m.app.world.Steps(),
		m.slack,
		m.color,
		opts.SegmentsPerUnitDistance,
	)
	line := statusStyle.Render(status)
	if m.paused {
		line += " " + pausedStyle.Render("PAUSED")
	}
	return line
}
