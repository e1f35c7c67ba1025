// Package insights provides the per-habit trends and distributions tab.
package insights

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/habitlens/internal/app"
)

type keyMap struct {
	Period      key.Binding
	Recalculate key.Binding
	Up          key.Binding
	Down        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Period:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "cycle trend period")),
		Recalculate: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "recalculate")),
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
	}
}

// Model represents the insights tab state.
type Model struct {
	state    *app.State
	commands *app.Commands
	keys     keyMap
	viewport viewport.Model
	width    int
	height   int

	// loading is the habit whose analytics were requested from this tab.
	loading string
}

// New creates the insights tab.
func New(state *app.State, commands *app.Commands) *Model {
	return &Model{
		state:    state,
		commands: commands,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the insights tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the insights tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.TabSwitchMsg:
		if msg.Tab == app.TabInsights {
			m.viewport.GotoTop()
			return m, m.ensureLoaded()
		}

	case app.SelectedHabitChangedMsg:
		m.viewport.GotoTop()
		return m, m.ensureLoaded()

	case app.AnalyticsLoadedMsg:
		if msg.HabitID == m.loading {
			m.loading = ""
		}

	case tea.KeyMsg:
		return m, m.handleKeyMsg(msg)
	}

	return m, nil
}

// ensureLoaded requests analytics for the selected habit when the overview
// has neither a result nor an error for it.
func (m *Model) ensureLoaded() tea.Cmd {
	h, ok := m.state.SelectedHabit()
	if !ok || h.Analytics != nil || h.Err != nil || m.loading == h.Habit.ID {
		return nil
	}
	cmd := m.commands.LoadAnalytics(h.Habit.ID, false)
	if cmd != nil {
		m.loading = h.Habit.ID
	}
	return cmd
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Period):
		m.state.CyclePeriod()
	case key.Matches(msg, m.keys.Recalculate):
		if h, ok := m.state.SelectedHabit(); ok {
			cmd := m.commands.LoadAnalytics(h.Habit.ID, true)
			if cmd != nil {
				m.loading = h.Habit.ID
			}
			return cmd
		}
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

// SetSize sets the available size for the insights tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Period, m.keys.Recalculate}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Period, m.keys.Recalculate},
		{m.keys.Up, m.keys.Down},
	}
}
