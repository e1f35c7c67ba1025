// Package info provides the info tab: configuration, connectivity and cache
// diagnostics.
package info

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/habitlens/internal/app"
	"github.com/j-veylop/habitlens/internal/config"
)

type keyMap struct {
	Cleanup key.Binding
	Clear   key.Binding
	Up      key.Binding
	Down    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Cleanup: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "remove expired cache entries")),
		Clear:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear cache")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
	}
}

// Model shows configuration and diagnostics. It reads connectivity and
// cache stats from the shared state, which the root model keeps current.
type Model struct {
	state    *app.State
	commands *app.Commands
	config   *config.Config
	keys     keyMap
	viewport viewport.Model

	width, height int
}

// New creates the info tab.
func New(state *app.State, commands *app.Commands, cfg *config.Config) *Model {
	return &Model{
		state:    state,
		commands: commands,
		config:   cfg,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

func (m *Model) Init() tea.Cmd { return nil }

// Update reloads cache stats when the tab is shown and handles the cache
// maintenance keys.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.TabSwitchMsg:
		if msg.Tab == app.TabInfo {
			return m, m.commands.LoadCacheStats()
		}
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Cleanup):
			return m, m.commands.CleanupCache()
		case key.Matches(msg, m.keys.Clear):
			return m, m.commands.ClearCache()
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// SetSize sets the available size for the info tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Cleanup, m.keys.Clear}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Cleanup, m.keys.Clear},
		{m.keys.Up, m.keys.Down},
	}
}
