package habits

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/habitlens/internal/app"
	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/retry"
	"github.com/j-veylop/habitlens/internal/services"
)

func loadedState() *app.State {
	state := app.NewState()
	state.SetLoading("initial", false)

	read := &models.AnalyticsResult{
		HabitID: "h1", CurrentStreak: 5, LongestStreak: 12, CompletionRate: 80, TotalCompletions: 40,
	}
	read.Trends.Set(models.TrendSummary{
		Period: models.TrendFourWeeks, PercentageChange: 25, Direction: models.DirectionUp,
		DataPoints: []models.DataPoint{{Date: "2025-03-01", Value: 1}, {Date: "2025-03-02", Value: 1}},
	})

	state.SetHabits([]services.HabitAnalytics{
		{Habit: models.Habit{ID: "h1", Name: "Read"}, Analytics: &services.Analytics{Result: read, FromCache: true, Age: 2 * time.Minute}},
		{Habit: models.Habit{ID: "h2", Name: "Run"}, Err: &retry.Error{Kind: retry.KindInsufficientData, Message: "Not enough data"}},
		{Habit: models.Habit{ID: "h3", Name: "Stretch"}, Analytics: &services.Analytics{
			Result: &models.AnalyticsResult{HabitID: "h3"}, Stale: true, Age: 3 * time.Hour,
		}},
	})
	return state
}

func TestModel_Init(t *testing.T) {
	m := New(app.NewState(), app.NewCommands(nil))
	if m.Init() == nil {
		t.Error("Init returned nil")
	}
	if updated, _ := m.Update(nil); updated == nil {
		t.Error("Update returned nil model")
	}
}

func TestModel_ViewLoadingAndEmpty(t *testing.T) {
	state := app.NewState()
	m := New(state, app.NewCommands(nil))
	m.SetSize(100, 30)

	if !strings.Contains(m.View(), "Loading habits") {
		t.Error("initial view should show the spinner label")
	}

	state.SetLoading("initial", false)
	if !strings.Contains(m.View(), "No habits yet") {
		t.Error("empty view should explain how to add habits")
	}
}

func TestModel_View(t *testing.T) {
	m := New(loadedState(), app.NewCommands(nil))
	m.SetSize(120, 60)

	view := m.View()
	for _, want := range []string{
		"3 habits", "Read", "5 day streak", "best 12", "+25% vs prev 4W", "40 check-ins", "cached 2m ago",
		"Run", "Not enough data",
		"Stretch", "no streak", "offline · 3h old",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_Navigation(t *testing.T) {
	state := loadedState()
	m := New(state, app.NewCommands(nil))

	press := func(r rune) tea.Cmd {
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		return cmd
	}

	press('j')
	if state.GetSelectedHabitIndex() != 1 {
		t.Errorf("selection = %d, want 1", state.GetSelectedHabitIndex())
	}
	press('G')
	if state.GetSelectedHabitIndex() != 2 {
		t.Errorf("selection = %d, want 2", state.GetSelectedHabitIndex())
	}
	press('j')
	if state.GetSelectedHabitIndex() != 0 {
		t.Errorf("selection should wrap to 0, got %d", state.GetSelectedHabitIndex())
	}
	press('k')
	if state.GetSelectedHabitIndex() != 2 {
		t.Errorf("selection should wrap to 2, got %d", state.GetSelectedHabitIndex())
	}

	cmd := m.selectIndex(1, 3)
	msg, ok := cmd().(app.SelectedHabitChangedMsg)
	if !ok || msg.HabitID != "h2" {
		t.Errorf("selectIndex should announce h2, got %#v", msg)
	}

	if m.selectIndex(0, 0) != nil {
		t.Error("selecting in an empty list should do nothing")
	}
}

func TestModel_OpenInsights(t *testing.T) {
	m := New(loadedState(), app.NewCommands(nil))
	cmd := m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should open insights")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) != 2 {
		t.Fatalf("expected a batch of two commands, got %#v", batch)
	}
	if sw, ok := batch[1]().(app.TabSwitchMsg); !ok || sw.Tab != app.TabInsights {
		t.Errorf("second command should switch to insights, got %#v", sw)
	}
}

func TestModel_Animation(t *testing.T) {
	m := New(loadedState(), app.NewCommands(nil))
	start := time.Now()

	if !m.syncTargets(start) {
		t.Fatal("new rates should start an animation")
	}
	if got := m.displayedRate("h1", 80); got != 0 {
		t.Errorf("bar should start at 0, got %v", got)
	}

	m.animate(start.Add(animationDuration / 2))
	mid := m.displayedRate("h1", 80)
	if mid <= 0 || mid >= 80 {
		t.Errorf("mid-animation rate = %v", mid)
	}

	if m.animate(start.Add(2 * animationDuration)) {
		// animate reports the state before stepping; one more frame settles it.
		m.animate(start.Add(3 * animationDuration))
	}
	if got := m.displayedRate("h1", 80); got != 80 {
		t.Errorf("final rate = %v, want 80", got)
	}
	if m.animate(start.Add(4 * animationDuration)) {
		t.Error("settled bars should stop ticking")
	}

	if got := m.displayedRate("unknown", 42); got != 42 {
		t.Errorf("habits without animation should show their rate, got %v", got)
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState(), app.NewCommands(nil))
	if len(m.ShortHelp()) == 0 || len(m.FullHelp()) == 0 {
		t.Error("help should list bindings")
	}
}
