package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/services"
)

// HabitsCmd lists the user's habits with their headline numbers.
type HabitsCmd struct {
	Force bool `help:"Recalculate instead of using cached analytics."`
}

func (c *HabitsCmd) Run(ctx *Context) error {
	mgr, err := ctx.Manager()
	if err != nil {
		return err
	}

	overview, err := mgr.Overview(ctx.Ctx, mgr.Config().UserID, c.Force)
	if err != nil {
		return err
	}
	if len(overview) == 0 {
		fmt.Fprintln(ctx.Out, "No habits found")
		return nil
	}

	fmt.Fprintln(ctx.Out, renderOverview(overview))
	return nil
}

func renderOverview(overview []services.HabitAnalytics) string {
	rows := make([][]string, 0, len(overview))
	for _, h := range overview {
		rows = append(rows, overviewRow(h))
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Habit", "Streak", "Best", "Rate", "4W trend", "Source").
		Rows(rows...).
		Render()
}

func overviewRow(h services.HabitAnalytics) []string {
	row := []string{h.Habit.ID, h.Habit.Name}
	if h.Err != nil {
		return append(row, "-", "-", "-", "-", h.Err.Message)
	}

	r := h.Analytics.Result
	trend := r.Trends.Get(models.TrendFourWeeks)
	return append(row,
		fmt.Sprintf("%d", r.CurrentStreak),
		fmt.Sprintf("%d", r.LongestStreak),
		fmt.Sprintf("%.0f%%", r.CompletionRate),
		fmt.Sprintf("%+.0f%% %s", trend.PercentageChange, trend.Direction),
		source(h.Analytics),
	)
}

func source(a *services.Analytics) string {
	switch {
	case a.Stale:
		return "offline (" + a.Age.Truncate(time.Second).String() + " old)"
	case a.FromCache:
		return "cache"
	default:
		return "computed"
	}
}

// findHabit matches a habit by id, then by case-insensitive name.
func findHabit(habits []models.Habit, ref string) (models.Habit, bool) {
	for _, h := range habits {
		if h.ID == ref {
			return h, true
		}
	}
	for _, h := range habits {
		if strings.EqualFold(h.Name, ref) {
			return h, true
		}
	}
	return models.Habit{}, false
}
