// Package habits provides the habit overview tab.
package habits

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/habitlens/internal/app"
	"github.com/j-veylop/habitlens/internal/ui/components"
)

const (
	animationFrame    = 40 * time.Millisecond
	animationDuration = 1500 * time.Millisecond
)

type animationTickMsg time.Time

func animationTickCmd() tea.Cmd {
	return tea.Tick(animationFrame, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

type keyMap struct {
	Next        key.Binding
	Prev        key.Binding
	First       key.Binding
	Last        key.Binding
	Open        key.Binding
	Recalculate key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "next habit")),
		Prev:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "prev habit")),
		First:       key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first habit")),
		Last:        key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "last habit")),
		Open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open insights")),
		Recalculate: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "recalculate habit")),
	}
}

// barAnimation eases a rate bar from its previous value to a new target.
type barAnimation struct {
	start   time.Time
	from    float64
	current float64
	target  float64
}

// Model represents the habits tab state.
type Model struct {
	state      *app.State
	commands   *app.Commands
	animations map[string]*barAnimation
	spinner    components.LoadingSpinner
	bar        components.RateBar
	keys       keyMap
	viewport   viewport.Model
	width      int
	height     int
}

// New creates the habits tab.
func New(state *app.State, commands *app.Commands) *Model {
	return &Model{
		state:      state,
		commands:   commands,
		animations: make(map[string]*barAnimation),
		spinner:    components.NewSpinner("Loading habits..."),
		bar:        components.NewRateBar(),
		keys:       defaultKeyMap(),
		viewport:   viewport.New(0, 0),
	}
}

// Init starts the spinner and the bar animation.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Init(), animationTickCmd())
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case animationTickMsg:
		if m.animate(time.Time(msg)) {
			cmds = append(cmds, animationTickCmd())
		}

	case app.HabitsLoadedMsg, app.AnalyticsLoadedMsg, app.ServiceEventMsg:
		if m.syncTargets(time.Now()) {
			cmds = append(cmds, animationTickCmd())
		}

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	count := m.state.GetHabitCount()
	selected := m.state.GetSelectedHabitIndex()

	switch {
	case key.Matches(msg, m.keys.Next):
		return m.selectIndex((selected+1)%max(count, 1), count)
	case key.Matches(msg, m.keys.Prev):
		return m.selectIndex((selected-1+count)%max(count, 1), count)
	case key.Matches(msg, m.keys.First):
		return m.selectIndex(0, count)
	case key.Matches(msg, m.keys.Last):
		return m.selectIndex(count-1, count)
	case key.Matches(msg, m.keys.Open):
		if h, ok := m.state.SelectedHabit(); ok {
			return tea.Batch(
				func() tea.Msg { return app.SelectedHabitChangedMsg{Index: selected, HabitID: h.Habit.ID} },
				func() tea.Msg { return app.TabSwitchMsg{Tab: app.TabInsights} },
			)
		}
	case key.Matches(msg, m.keys.Recalculate):
		if h, ok := m.state.SelectedHabit(); ok {
			return m.commands.LoadAnalytics(h.Habit.ID, true)
		}
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) selectIndex(idx, count int) tea.Cmd {
	if count == 0 {
		return nil
	}
	m.state.SetSelectedHabitIndex(idx)
	h, _ := m.state.SelectedHabit()
	return func() tea.Msg {
		return app.SelectedHabitChangedMsg{Index: idx, HabitID: h.Habit.ID}
	}
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// syncTargets points every bar at its habit's current rate and reports
// whether any bar has to move.
func (m *Model) syncTargets(now time.Time) bool {
	moving := false
	for _, h := range m.state.GetHabits() {
		if h.Analytics == nil || h.Analytics.Result == nil {
			continue
		}
		target := h.Analytics.Result.CompletionRate

		a, ok := m.animations[h.Habit.ID]
		if !ok {
			a = &barAnimation{start: now}
			m.animations[h.Habit.ID] = a
		}
		if a.target != target {
			a.from, a.target, a.start = a.current, target, now
		}
		if a.current != a.target {
			moving = true
		}
	}
	return moving
}

// animate advances all bars with an ease-out curve and reports whether
// another frame is needed.
func (m *Model) animate(now time.Time) bool {
	moving := m.syncTargets(now)
	for _, a := range m.animations {
		if a.current == a.target {
			continue
		}
		progress := float64(now.Sub(a.start)) / float64(animationDuration)
		if progress >= 1 {
			a.current = a.target
			continue
		}
		ease := 1 - (1-progress)*(1-progress)
		a.current = a.from + (a.target-a.from)*ease
	}
	return moving || m.state.IsInitialLoading()
}

// displayedRate returns the animated rate of a habit.
func (m *Model) displayedRate(habitID string, rate float64) float64 {
	if a, ok := m.animations[habitID]; ok {
		return a.current
	}
	return rate
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Next, m.keys.Prev, m.keys.Open, m.keys.Recalculate}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Next, m.keys.Prev},
		{m.keys.First, m.keys.Last},
		{m.keys.Open, m.keys.Recalculate},
	}
}
