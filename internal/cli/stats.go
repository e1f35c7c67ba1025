package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/services"
	"github.com/j-veylop/habitlens/internal/services/insights"
	"github.com/j-veylop/habitlens/internal/ui/components"
)

// StatsCmd prints the analytics of one habit.
type StatsCmd struct {
	Habit  string `arg:"" help:"Habit id or name."`
	JSON   bool   `name:"json" help:"Print the analytics result as JSON."`
	Force  bool   `help:"Recalculate instead of using cached analytics."`
	Period string `help:"Trend period to chart (${enum})." enum:"4W,3M,6M,1Y" default:"4W"`
}

func (c *StatsCmd) Run(ctx *Context) error {
	mgr, err := ctx.Manager()
	if err != nil {
		return err
	}
	userID := mgr.Config().UserID

	habits, err := mgr.ListHabits(ctx.Ctx, userID)
	if err != nil {
		return err
	}
	habit, ok := findHabit(habits, c.Habit)
	if !ok {
		return fmt.Errorf("habit %q not found", c.Habit)
	}

	a, err := mgr.GetAnalytics(ctx.Ctx, userID, habit.ID, c.Force)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(a.Result)
	}

	writeStats(ctx.Out, habit, a, models.TrendPeriod(c.Period))
	return nil
}

func writeStats(w io.Writer, habit models.Habit, a *services.Analytics, period models.TrendPeriod) {
	r := a.Result
	fmt.Fprintf(w, "%s (%s)\n", habit.Name, source(a))
	fmt.Fprintf(w, "  Current streak:  %d days\n", r.CurrentStreak)
	fmt.Fprintf(w, "  Longest streak:  %d days\n", r.LongestStreak)
	fmt.Fprintf(w, "  Completion rate: %.0f%%\n", r.CompletionRate)
	fmt.Fprintf(w, "  Completions:     %d\n", r.TotalCompletions)
	fmt.Fprintf(w, "  Calculated:      %s\n\n", r.CalculatedAt.Local().Format("2006-01-02 15:04"))

	trend := r.Trends.Get(period)
	fmt.Fprintf(w, "Trend, last %s: %s\n", period, insights.DescribeTrend(trend))
	if len(trend.DataPoints) > 1 {
		fmt.Fprintln(w, asciigraph.Plot(components.RollingSum(components.PointValues(trend.DataPoints), 7),
			asciigraph.Height(6),
			asciigraph.Width(60),
			asciigraph.Caption("completions per 7 check-ins"),
		))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, trendTable(r.Trends))
	fmt.Fprintln(w, weekdayTable(r.DayOfWeekStats))

	dist := r.TimeOfDayDistribution
	fmt.Fprintf(w, "Peak hours:          %s\n", components.FormatHours(dist.PeakHours))
	fmt.Fprintf(w, "Best reminder times: %s\n", components.FormatHours(dist.OptimalReminderTimes))
}

func trendTable(trends models.Trends) string {
	rows := make([][]string, 0, len(models.TrendPeriods))
	for _, p := range models.TrendPeriods {
		t := trends.Get(p)
		rows = append(rows, []string{
			p.String(),
			fmt.Sprintf("%.0f%%", t.CompletionRate),
			fmt.Sprintf("%.0f%%", t.PreviousRate),
			fmt.Sprintf("%+.0f%%", t.PercentageChange),
			string(t.Direction),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Period", "Rate", "Previous", "Change", "Direction").
		Rows(rows...).
		Render()
}

func weekdayTable(stats models.DayOfWeekStats) string {
	rows := make([][]string, 0, len(stats.Days))
	for _, d := range stats.Days {
		mark := ""
		switch d.Day {
		case stats.BestDay:
			mark = "best"
		case stats.WorstDay:
			mark = "worst"
		}
		rows = append(rows, []string{
			d.Day,
			fmt.Sprintf("%.0f%%", d.CompletionRate),
			fmt.Sprintf("%d/%d", d.TotalCompletions, d.TotalScheduled),
			mark,
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Day", "Rate", "Done", "").
		Rows(rows...).
		Render()
}
