// Package app holds the root Bubble Tea model, the shared UI state and the
// commands that talk to the service manager.
package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/habitlens/internal/retry"
	"github.com/j-veylop/habitlens/internal/services"
	"github.com/j-veylop/habitlens/internal/ui/styles"
)

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabHabits lists every habit with its streak and completion rate.
	TabHabits TabID = iota
	// TabInsights shows trends and distributions for the selected habit.
	TabInsights
	// TabInfo shows configuration, connectivity and cache diagnostics.
	TabInfo
)

var tabNames = []string{"Habits", "Insights", "Info"}

// String returns the string representation of the TabID.
func (t TabID) String() string {
	if t < 0 || int(t) >= len(tabNames) {
		return "Unknown"
	}
	return tabNames[t]
}

// Tab is one screen of the dashboard. Tabs share the State and get every
// message while active; SetSize receives the area below the navbar.
type Tab interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Tab, tea.Cmd)
	View() string
	SetSize(width, height int)
	ShortHelp() []key.Binding
	FullHelp() [][]key.Binding
}

// KeyMap defines the global keybindings.
type KeyMap struct {
	Tab1         key.Binding
	Tab2         key.Binding
	Tab3         key.Binding
	NextTab      key.Binding
	PrevTab      key.Binding
	Refresh      key.Binding
	ForceRefresh key.Binding
	Help         key.Binding
	Quit         key.Binding
	Escape       key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Tab1:         key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "habits")),
		Tab2:         key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "insights")),
		Tab3:         key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "info")),
		NextTab:      key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab/→", "next tab")),
		PrevTab:      key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab/←", "prev tab")),
		Refresh:      key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),
		ForceRefresh: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "recalculate")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Escape:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Refresh, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.Tab3},
		{k.NextTab, k.PrevTab},
		{k.Refresh, k.ForceRefresh, k.Help, k.Quit},
	}
}

// Styles holds the styles of the navbar, toasts and help overlay.
type Styles struct {
	TabBar      lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style
	Offline     lipgloss.Style

	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	Content lipgloss.Style
	Toast   lipgloss.Style

	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
}

// DefaultStyles derives the chrome styles from the shared palette.
func DefaultStyles() Styles {
	pad := lipgloss.NewStyle().Padding(0, 1)
	return Styles{
		TabBar: pad.BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).BorderForeground(styles.Subtle),
		ActiveTab:   lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Padding(0, 2),
		InactiveTab: lipgloss.NewStyle().Foreground(styles.TextMuted).Padding(0, 2),
		Offline:     lipgloss.NewStyle().Bold(true).Foreground(styles.Warning).Padding(0, 2),

		NotificationSuccess: pad.Foreground(styles.Success),
		NotificationError:   pad.Foreground(styles.Error).Bold(true),
		NotificationWarning: pad.Foreground(styles.Warning),
		NotificationInfo:    pad.Foreground(styles.Info),

		Content: lipgloss.NewStyle().Padding(1, 2),
		Toast:   styles.ToastStyle,

		Title:     styles.TitleStyle.MarginBottom(0),
		Subtle:    styles.HelpStyle,
		Highlight: lipgloss.NewStyle().Foreground(styles.Secondary),
	}
}

// Model is the root model: navbar, toasts and help around the active tab.
type Model struct {
	activeTab TabID
	tabs      []Tab

	state    *State
	services *services.Manager
	commands *Commands
	keymap   KeyMap
	styles   Styles

	spinner spinner.Model

	width  int
	height int

	showHelp bool
	ready    bool

	eventChannel chan services.ServiceEvent
}

// NewModel initializes a new application model. mgr may be nil, in which
// case no data is loaded.
func NewModel(mgr *services.Manager) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return &Model{
		activeTab: TabHabits,
		tabs:      make([]Tab, len(tabNames)), // set by SetTabs
		state:     NewState(),
		services:  mgr,
		commands:  NewCommands(mgr),
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		spinner:   s,
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// GetCommands returns the commands helper.
func (m *Model) GetCommands() *Commands {
	return m.commands
}

// GetActiveTab returns the currently active tab ID.
func (m *Model) GetActiveTab() TabID {
	return m.activeTab
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	m.state.SetLoadingNotification("Loading habits...")

	cmds := []tea.Cmd{
		m.spinner.Tick,
		defaultTickCmd(),
	}

	if m.services != nil {
		m.state.SetConnectivity(m.services.Connectivity())
		cmds = append(cmds,
			subscribeToServicesCmd(m.services),
			loadInitialData(m.services, m.commands.UserID()),
		)
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateTabSizes()
	case tea.KeyMsg:
		if cmd := m.handleKeyMsg(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	default:
		cmds = append(cmds, m.handleAppMsg(msg)...)
	}

	if cmd := m.updateActiveTab(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, defaultTickCmd())
	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEvent(msg.Event))
		if m.eventChannel != nil {
			cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		}
	case HabitsLoadedMsg:
		cmds = append(cmds, m.handleHabitsLoaded(msg))
	case AnalyticsLoadedMsg:
		if msg.Error != nil {
			cmds = append(cmds, notifyErrorCmd(describeError(msg.Error)))
		} else {
			m.state.UpdateAnalytics(msg.HabitID, msg.Analytics)
		}
	case CacheStatsMsg:
		m.state.SetLoading("cache", false)
		if msg.Error != nil {
			cmds = append(cmds, notifyWarningCmd(fmt.Sprintf("Cache stats unavailable: %v", msg.Error)))
		} else {
			m.state.SetCacheStats(msg.Stats)
		}
	case CacheClearedMsg:
		what := "Cleared"
		if msg.Expired {
			what = "Removed expired"
		}
		cmds = append(cmds,
			notifySuccessCmd(fmt.Sprintf("%s cache entries: %d", what, msg.Removed)),
			m.commands.LoadCacheStats())
	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
		}
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case ClearExpiredNotificationsMsg:
		m.state.ClearExpiredNotifications()
	case StartLoadingMsg:
		m.state.SetLoading(msg.Resource, true)
		m.state.SetLoadingNotification("Refreshing...")
	case StopLoadingMsg:
		m.stopLoading(msg.Resource)
	case ErrorMsg:
		cmds = append(cmds, notifyErrorCmd(msg.Error.Error()))
	case RefreshMsg:
		cmds = append(cmds, m.handleRefresh(msg)...)
	case SelectedHabitChangedMsg:
		m.state.SetSelectedHabitIndex(msg.Index)
	case TabSwitchMsg:
		m.activeTab = msg.Tab
		m.updateTabSizes()
	case ToggleHelpMsg:
		m.showHelp = !m.showHelp
	}
	return cmds
}

func (m *Model) stopLoading(resource string) {
	m.state.SetLoading(resource, false)
	if !m.state.AnyLoading() {
		m.state.ClearLoadingNotification()
	}
}

func (m *Model) handleHabitsLoaded(msg HabitsLoadedMsg) tea.Cmd {
	m.state.SetLoading("initial", false)
	m.stopLoading("habits")
	if msg.Error != nil {
		return notifyErrorCmd(fmt.Sprintf("Failed to load habits: %s", describeError(msg.Error)))
	}
	m.state.SetHabits(msg.Habits)
	return nil
}

func (m *Model) handleRefresh(msg RefreshMsg) []tea.Cmd {
	if m.services == nil {
		return nil
	}

	var cmds []tea.Cmd
	switch msg.Resource {
	case "all", "habits":
		cmds = append(cmds,
			func() tea.Msg { return StartLoadingMsg{Resource: "habits"} },
			m.commands.LoadOverview(msg.Force))
	}
	if msg.Resource == "all" || msg.Resource == "cache" {
		cmds = append(cmds, m.commands.LoadCacheStats())
	}
	return cmds
}

func (m *Model) updateActiveTab(msg tea.Msg) tea.Cmd {
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		var cmd tea.Cmd
		m.tabs[m.activeTab], cmd = m.tabs[m.activeTab].Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateTabSizes() {
	contentHeight := max(m.height-5, 0)
	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

// switchTab activates a tab and lets it know it became visible.
func (m *Model) switchTab(id TabID) tea.Cmd {
	if id == m.activeTab {
		return nil
	}
	m.activeTab = id
	m.updateTabSizes()
	return func() tea.Msg { return TabSwitchMsg{Tab: id} }
}

// handleKeyMsg handles global keys. Everything else goes to the active tab.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keymap.Escape):
		m.showHelp = false
	case key.Matches(msg, m.keymap.Tab1):
		return m.switchTab(TabHabits)
	case key.Matches(msg, m.keymap.Tab2):
		return m.switchTab(TabInsights)
	case key.Matches(msg, m.keymap.Tab3):
		return m.switchTab(TabInfo)
	case key.Matches(msg, m.keymap.NextTab):
		if !m.showHelp && len(m.tabs) > 0 {
			return m.switchTab(TabID((int(m.activeTab) + 1) % len(m.tabs)))
		}
	case key.Matches(msg, m.keymap.PrevTab):
		if !m.showHelp && len(m.tabs) > 0 {
			return m.switchTab(TabID((int(m.activeTab) - 1 + len(m.tabs)) % len(m.tabs)))
		}
	case key.Matches(msg, m.keymap.Refresh):
		return func() tea.Msg { return RefreshMsg{Resource: "all"} }
	case key.Matches(msg, m.keymap.ForceRefresh):
		return func() tea.Msg { return RefreshMsg{Resource: "all", Force: true} }
	}
	return nil
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.HabitsChangedEvent:
		if e.UserID == m.commands.UserID() {
			return tea.Batch(
				notifyInfoCmd("Records changed, recalculating"),
				m.commands.LoadOverview(false),
			)
		}

	case services.AnalyticsUpdatedEvent:
		m.state.UpdateAnalytics(e.HabitID, e.Analytics)

	case services.ConnectivityChangedEvent:
		status := m.state.GetConnectivity()
		wasOnline := status.Online
		status.Online, status.Quality, status.Latency = e.Online, e.Quality, e.Latency
		m.state.SetConnectivity(status)

		notify := func() tea.Msg { return ConnectivityMsg{Status: status} }
		switch {
		case wasOnline && !e.Online:
			return tea.Batch(notify, notifyWarningCmd("Offline: showing last known analytics"))
		case !wasOnline && e.Online:
			return tea.Batch(notify, notifySuccessCmd("Back online"), m.commands.LoadOverview(false))
		}
		return notify

	case services.CacheCleanedEvent:
		return m.commands.LoadCacheStats()

	case services.ErrorEvent:
		// Habits without enough history are shown in place, not toasted.
		if e.Error != nil && retry.Classify(e.Error).Kind == retry.KindInsufficientData {
			return nil
		}
		return notifyErrorCmd(fmt.Sprintf("[%s] %s", e.Service, describeError(e.Error)))
	}

	return nil
}

// describeError renders an error for a toast, preferring the classified
// user-facing message.
func describeError(err error) string {
	if err == nil {
		return "unknown error"
	}
	return retry.Classify(err).Message
}

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.Content.Render(fmt.Sprintf("%s Loading...", m.spinner.View())))
		return b.String()
	}

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		b.WriteString(m.tabs[m.activeTab].View())
	} else {
		b.WriteString(m.styles.Content.Render(fmt.Sprintf("%s\n\n%s",
			m.activeTab, m.styles.Subtle.Render("Nothing to show here yet."))))
	}

	mainView := b.String()
	if m.showHelp {
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	if toasts := m.renderNotifications(); len(toasts) > 0 {
		return m.overlayToasts(mainView, toasts)
	}
	return mainView
}

// padLines extends lines with blanks so overlays can be placed anywhere on screen.
func padLines(lines []string, height int) []string {
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines
}

func (m *Model) overlayCentered(mainView, overlay string) string {
	mainLines := padLines(strings.Split(mainView, "\n"), m.height)
	overlayLines := strings.Split(overlay, "\n")

	y := max((m.height-len(overlayLines))/2, 0)
	x := max((m.width-lipgloss.Width(overlay))/2, 0)
	overlayWidth := lipgloss.Width(overlay)

	for i, overlayLine := range overlayLines {
		row := y + i
		if row >= len(mainLines) {
			break
		}
		line := mainLines[row]

		left := ansi.Truncate(line, x, "")
		if w := lipgloss.Width(left); w < x {
			left += strings.Repeat(" ", x-w)
		}
		right := ansi.TruncateLeft(line, x+overlayWidth, "")

		mainLines[row] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderNavbar() string {
	tabs := make([]string, 0, len(tabNames)+1)
	for i, name := range tabNames {
		if TabID(i) == m.activeTab {
			tabs = append(tabs, m.styles.ActiveTab.Render(fmt.Sprintf("[%d] %s", i+1, name)))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(fmt.Sprintf(" %d  %s", i+1, name)))
		}
	}
	if !m.state.GetConnectivity().Online {
		tabs = append(tabs, m.styles.Offline.Render("OFFLINE"))
	}

	return m.styles.TabBar.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return nil
	}

	toasts := make([]string, 0, len(notifications))
	for _, n := range notifications {
		var style lipgloss.Style
		var prefix string

		switch n.Type {
		case NotificationSuccess:
			style, prefix = m.styles.NotificationSuccess, "[OK]"
		case NotificationError:
			style, prefix = m.styles.NotificationError, "[ERR]"
		case NotificationWarning:
			style, prefix = m.styles.NotificationWarning, "[WARN]"
		case NotificationLoading:
			style, prefix = m.styles.NotificationInfo, m.spinner.View()
		default:
			style, prefix = m.styles.NotificationInfo, "[INFO]"
		}

		toasts = append(toasts, m.styles.Toast.Render(style.Render(prefix+" "+n.Message)))
	}
	return toasts
}

func (m *Model) overlayToasts(mainView string, toasts []string) string {
	stack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	mainLines := padLines(strings.Split(mainView, "\n"), m.height)
	startX := max(m.width-lipgloss.Width(stack)-2, 0)
	const startY = 2

	for i, toastLine := range strings.Split(stack, "\n") {
		row := startY + i
		if row >= len(mainLines) {
			break
		}
		line := mainLines[row]
		if w := lipgloss.Width(line); w < startX {
			mainLines[row] = line + strings.Repeat(" ", startX-w) + toastLine
		} else {
			mainLines[row] = ansi.Truncate(line, startX, "") + toastLine
		}
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderHelp() string {
	lines := []string{
		m.styles.Title.Render("Keyboard Shortcuts"),
		"",
		m.styles.Highlight.Render("Navigation"),
		"  1-3        Switch tabs",
		"  Tab        Next tab",
		"  Shift+Tab  Previous tab",
		"",
		m.styles.Highlight.Render("Actions"),
		"  r          Refresh (uses cached analytics)",
		"  R          Recalculate everything",
		"  ?          Toggle help",
		"  q/Ctrl+C   Quit",
		"",
	}

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		if tabHelp := m.tabs[m.activeTab].ShortHelp(); len(tabHelp) > 0 {
			lines = append(lines, m.styles.Highlight.Render(m.activeTab.String()+" Tab"))
			for _, binding := range tabHelp {
				lines = append(lines, fmt.Sprintf("  %-10s %s", binding.Help().Key, binding.Help().Desc))
			}
			lines = append(lines, "")
		}
	}

	lines = append(lines, m.styles.Subtle.Render("Press ? or Esc to close"))
	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}
