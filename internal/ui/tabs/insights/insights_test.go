package insights

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

func sampleResult() *models.AnalyticsResult {
	r := &models.AnalyticsResult{
		HabitID:          "h1",
		CurrentStreak:    5,
		LongestStreak:    12,
		CompletionRate:   80,
		TotalCompletions: 40,
		CalculatedAt:     time.Date(2025, 3, 10, 9, 30, 0, 0, time.Local),
		DayOfWeekStats: models.DayOfWeekStats{
			Days: []models.DayStats{
				{Day: "Sunday", CompletionRate: 50},
				{Day: "Monday", CompletionRate: 100},
				{Day: "Tuesday", CompletionRate: 75},
			},
			BestDay:  "Monday",
			WorstDay: "Sunday",
		},
	}
	r.TimeOfDayDistribution.HourlyDistribution[7] = 4
	r.TimeOfDayDistribution.PeakHours = []int{7}
	r.TimeOfDayDistribution.OptimalReminderTimes = []int{6}

	points := make([]models.DataPoint, 20)
	for i := range points {
		points[i] = models.DataPoint{Date: "2025-03-01", Value: float64(i % 2)}
	}
	r.Trends.Set(models.TrendSummary{
		Period: models.TrendFourWeeks, CompletionRate: 80, PreviousRate: 64,
		PercentageChange: 25, Direction: models.DirectionUp, DataPoints: points,
	})
	r.Trends.Set(models.TrendSummary{
		Period: models.TrendThreeMonths, CompletionRate: 70, PreviousRate: 70, Direction: models.DirectionStable,
	})
	return r
}

func newState(h services.HabitAnalytics) *app.State {
	state := app.NewState()
	state.SetLoading("initial", false)
	state.SetHabits([]services.HabitAnalytics{h})
	return state
}

func TestView_NoSelection(t *testing.T) {
	m := New(app.NewState(), app.NewCommands(nil))
	m.SetSize(100, 30)
	if !strings.Contains(m.View(), "No habit selected") {
		t.Error("view without habits should ask for a selection")
	}
}

func TestView_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  *retry.Error
		want string
	}{
		{"InsufficientData", &retry.Error{Kind: retry.KindInsufficientData, Message: "Not enough data", MinDataPoints: 3}, "at least 3 check-ins"},
		{"Retryable", &retry.Error{Kind: retry.KindNetwork, Message: "Network unavailable", CanRetry: true}, "Press f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(newState(services.HabitAnalytics{Habit: models.Habit{ID: "h1", Name: "Read"}, Err: tt.err}), app.NewCommands(nil))
			m.SetSize(100, 30)
			view := m.View()
			for _, want := range []string{"Read", tt.err.Message, tt.want} {
				if !strings.Contains(view, want) {
					t.Errorf("view missing %q", want)
				}
			}
		})
	}
}

func TestView_Loaded(t *testing.T) {
	state := newState(services.HabitAnalytics{
		Habit:     models.Habit{ID: "h1", Name: "Read"},
		Analytics: &services.Analytics{Result: sampleResult(), FromCache: true, Age: 2 * time.Minute},
	})
	m := New(state, app.NewCommands(nil))
	m.SetSize(120, 120)

	view := m.View()
	for _, want := range []string{
		"Read",
		"cached 2m ago",
		"5 days",
		"12 days",
		"80%",
		"Trend",
		"25% higher than the previous 4 Weeks",
		"3 Months",
		"+25%",
		"By weekday",
		"Mon",
		"Best: Monday",
		"Worst: Sunday",
		"Time of day",
		"Peak hours: 07:00",
		"Best reminder times: 06:00",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_StaleAndLoading(t *testing.T) {
	state := newState(services.HabitAnalytics{
		Habit:     models.Habit{ID: "h1", Name: "Read"},
		Analytics: &services.Analytics{Result: sampleResult(), Stale: true, Age: 3 * time.Hour},
	})
	m := New(state, app.NewCommands(nil))
	m.SetSize(120, 120)
	if !strings.Contains(m.View(), "offline · last computed 3h ago") {
		t.Error("stale result should be marked as offline")
	}

	state.SetHabits([]services.HabitAnalytics{{Habit: models.Habit{ID: "h1", Name: "Read"}}})
	if !strings.Contains(m.View(), "Loading analytics") {
		t.Error("habit without analytics should show loading")
	}
}

func TestUpdate_CyclePeriod(t *testing.T) {
	state := newState(services.HabitAnalytics{
		Habit:     models.Habit{ID: "h1", Name: "Read"},
		Analytics: &services.Analytics{Result: sampleResult()},
	})
	m := New(state, app.NewCommands(nil))
	m.SetSize(120, 120)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	if got := state.GetPeriod(); got != models.TrendThreeMonths {
		t.Fatalf("period = %s, want 3M", got)
	}
	if !strings.Contains(m.View(), "Steady versus the previous 3 Months") {
		t.Error("trend summary should follow the selected period")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	if got := state.GetPeriod(); got != models.TrendFourWeeks {
		t.Errorf("period should wrap back to 4W, got %s", got)
	}
}

func TestUpdate_WithoutManager(t *testing.T) {
	state := newState(services.HabitAnalytics{Habit: models.Habit{ID: "h1", Name: "Read"}})
	m := New(state, app.NewCommands(nil))

	if _, cmd := m.Update(app.TabSwitchMsg{Tab: app.TabInsights}); cmd != nil {
		t.Error("tab switch without a manager should not load")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}}); cmd != nil {
		t.Error("recalculate without a manager should return nil")
	}
	if m.loading != "" {
		t.Errorf("loading = %q, want empty", m.loading)
	}
}

func TestRenderTrendTable(t *testing.T) {
	out := renderTrendTable(sampleResult().Trends, models.TrendFourWeeks)
	for _, p := range models.TrendPeriods {
		if !strings.Contains(out, p.String()) {
			t.Errorf("table missing period %s", p)
		}
	}
	if !strings.Contains(out, "Previous") {
		t.Error("table missing header")
	}
}

func TestHelp(t *testing.T) {
	m := New(app.NewState(), app.NewCommands(nil))
	if len(m.ShortHelp()) != 2 || len(m.FullHelp()) != 2 {
		t.Error("unexpected help bindings")
	}
	if m.Init() != nil {
		t.Error("Init should return nil")
	}
}
