// Package tui renders the live playback dashboard: the collected views with
// their quality aggregates on the left, the scrolling beacon stream on the
// right, and a QoE summary footer.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vireolabs/playpulse/internal/config"
	"github.com/vireolabs/playpulse/internal/events"
	"github.com/vireolabs/playpulse/internal/sink"
)

type tickMsg time.Time

// EventProvider supplies formatted beacons for the stream panel.
// *events.RingBuffer satisfies it.
type EventProvider interface {
	Recent(limit int) []events.FormattedEvent
	ListByView(viewID string) []events.FormattedEvent
}

// ViewProvider supplies per-view aggregates. *sink.Memory satisfies it.
type ViewProvider interface {
	ListViews() []sink.ViewData
}

type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	Enter      key.Binding
	Escape     key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Quit       key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k")),
		Down:       key.NewBinding(key.WithKeys("down", "j")),
		Enter:      key.NewBinding(key.WithKeys("enter")),
		Escape:     key.NewBinding(key.WithKeys("esc")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup", "[")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown", "]")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c")),
	}
}

type Model struct {
	width    int
	height   int
	keys     KeyMap
	quitting bool

	cfg config.Config

	events EventProvider
	views  ViewProvider

	viewCursor   int
	selectedView string

	eventScrollPos int
	autoScroll     bool

	refreshRate time.Duration

	onShutdown func()
}

type ModelOption func(*Model)

func WithEventProvider(e EventProvider) ModelOption {
	return func(m *Model) { m.events = e }
}

func WithViewProvider(v ViewProvider) ModelOption {
	return func(m *Model) { m.views = v }
}

func WithOnShutdown(fn func()) ModelOption {
	return func(m *Model) { m.onShutdown = fn }
}

func NewModel(cfg config.Config, opts ...ModelOption) Model {
	m := Model{
		keys:        DefaultKeyMap(),
		cfg:         cfg,
		autoScroll:  true,
		refreshRate: time.Duration(cfg.Display.RefreshRateMS) * time.Millisecond,
	}
	if m.refreshRate <= 0 {
		m.refreshRate = 250 * time.Millisecond
	}

	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, m.tickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.onShutdown != nil {
			m.onShutdown()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.viewCursor > 0 {
			m.viewCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.viewCursor < len(m.getViews())-1 {
			m.viewCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		views := m.getViews()
		if m.viewCursor >= 0 && m.viewCursor < len(views) {
			m.selectedView = views[m.viewCursor].ViewID
		}
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.selectedView = ""
		m.autoScroll = true
		m.eventScrollPos = 0
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.autoScroll = false
		if m.eventScrollPos > 0 {
			m.eventScrollPos--
		}
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.autoScroll = false
		m.eventScrollPos++
		return m, nil
	}

	return m, nil
}

func (m Model) getViews() []sink.ViewData {
	if m.views == nil {
		return nil
	}
	return m.views.ListViews()
}

func (m Model) getEvents() []events.FormattedEvent {
	if m.events == nil {
		return nil
	}
	if m.selectedView != "" {
		return m.events.ListByView(m.selectedView)
	}
	return m.events.Recent(m.cfg.Display.EventBufferSize)
}
