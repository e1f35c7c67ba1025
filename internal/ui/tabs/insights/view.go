package insights

import (
	"fmt"
	
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/retry"
	"github.com/j-veylop/habitlens/internal/services"
	"github.com/j-veylop/habitlens/internal/services/insights"
	"github.com/j-veylop/habitlens/internal/ui/components"
	"github.com/j-veylop/habitlens/internal/ui/styles"
)

// rollingWindow is the number of check-ins summed per chart point.
const rollingWindow = 7

// View renders the insights tab.
func (m *Model) View() string {
	h, ok := m.state.SelectedHabit()
	if !ok {
		return m.frame(m.renderEmpty())
	}
	if h.Err != nil {
		return m.frame(m.renderError(h))
	}
	if h.Analytics == nil || h.Analytics.Result == nil {
		return m.frame(lipgloss.JoinVertical(lipgloss.Left,
			styles.TitleStyle.Render(h.Habit.Name),
			styles.HelpStyle.Render("Loading analytics..."),
		))
	}

	r := h.Analytics.Result
	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(h),
		m.renderSummary(r),
		m.renderTrend(r),
		m.renderWeekdays(r.DayOfWeekStats),
		m.renderTimeOfDay(r.TimeOfDayDistribution),
	)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) frame(content string) string {
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderEmpty() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("Insights"),
		"",
		styles.HelpStyle.Render("No habit selected."),
		styles.HelpStyle.Render("Pick one on the Habits tab and press enter."),
	)
}

func (m *Model) renderError(h services.HabitAnalytics) string {
	lines := []string{
		styles.TitleStyle.Render(h.Habit.Name),
		"",
		fmt.Sprintf("%s %s", styles.ErrorTextStyle.Render("Error:"), h.Err.Message),
	}

	switch {
	case h.Err.Kind == retry.KindInsufficientData:
		lines = append(lines, styles.HelpStyle.Render(
			fmt.Sprintf("Log at least %d check-ins to see insights.", max(h.Err.MinDataPoints, 1))))
	case h.Err.CanRetry:
		lines = append(lines, styles.HelpStyle.Render("Press f to try again."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderHeader(h services.HabitAnalytics) string {
	a := h.Analytics
	source := "computed just now"
	switch {
	case a.Stale:
		source = styles.StaleStyle.Render("offline · last computed " + components.FormatAge(a.Age) + " ago")
	case a.FromCache:
		source = "cached " + components.FormatAge(a.Age) + " ago"
	}

	subtitle := fmt.Sprintf("Calculated %s · %s",
		a.Result.CalculatedAt.Local().Format("Jan 2 15:04"), source)
	if m.loading == h.Habit.ID {
		subtitle += " · recalculating..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render(h.Habit.Name),
		styles.SubTitleStyle.Render(subtitle),
	)
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 40)
}

func (m *Model) renderSummary(r *models.AnalyticsResult) string {
	stat := func(label, value string, style lipgloss.Style) string {
		return lipgloss.JoinVertical(lipgloss.Left,
			styles.LabelStyle.Render(label),
			style.Render(value),
		)
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top,
		stat("Current streak", fmt.Sprintf("%d days", r.CurrentStreak), styles.StreakStyle),
		"    ",
		stat("Longest streak", fmt.Sprintf("%d days", r.LongestStreak), styles.ValueStyle),
		"    ",
		stat("Completion rate", fmt.Sprintf("%.0f%%", r.CompletionRate), styles.RateStyle(r.CompletionRate)),
		"    ",
		stat("Completions", fmt.Sprintf("%d", r.TotalCompletions), styles.ValueStyle),
	)
	return styles.CardStyle.Width(m.cardWidth()).Render(row)
}

func (m *Model) renderTrend(r *models.AnalyticsResult) string {
	period := m.state.GetPeriod()
	trend := r.Trends.Get(period)
	width := m.cardWidth() - 4

	title := lipgloss.JoinHorizontal(lipgloss.Left,
		styles.CardTitleStyle.Render("Trend"),
		"  ",
		styles.HelpStyle.Render(fmt.Sprintf("[%s] · t to change", period)),
	)

	var chart string
	if len(trend.DataPoints) == 0 {
		chart = styles.HelpStyle.Render("No check-ins in the last " + period.String())
	} else {
		values := components.RollingSum(components.PointValues(trend.DataPoints), rollingWindow)
		chart = components.RenderLineChart(values, width-10, 8,
			fmt.Sprintf("completions per %d check-ins", rollingWindow))
	}

	summary := styles.TrendStyle(trend.Direction).Render(
		fmt.Sprintf("%s %s", styles.TrendArrow(trend.Direction), insights.DescribeTrend(trend)))

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		chart,
		"",
		summary,
		"",
		renderTrendTable(r.Trends, period),
	))
}

// renderTrendTable lists every period, highlighting the selected one.
func renderTrendTable(trends models.Trends, selected models.TrendPeriod) string {
	rows := make([][]string, 0, len(models.TrendPeriods))
	for _, p := range models.TrendPeriods {
		t := trends.Get(p)
		rows = append(rows, []string{
			p.String(),
			fmt.Sprintf("%.0f%%", t.CompletionRate),
			fmt.Sprintf("%.0f%%", t.PreviousRate),
			fmt.Sprintf("%+.0f%%", t.PercentageChange),
			styles.TrendArrow(t.Direction),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.TextMuted)).
		Headers("Period", "Rate", "Previous", "Change", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.TableHeaderStyle
			case models.TrendPeriods[row] == selected:
				return styles.TableCellStyle.Bold(true)
			case col == 4:
				return styles.TrendStyle(trends.Get(models.TrendPeriods[row]).Direction).Padding(0, 1)
			default:
				return styles.TableCellStyle
			}
		}).
		Render()
}

func (m *Model) renderWeekdays(stats models.DayOfWeekStats) string {
	title := styles.CardTitleStyle.Render("By weekday")
	if len(stats.Days) == 0 {
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, styles.HelpStyle.Render("No data available")))
	}

	values := make([]float64, len(stats.Days))
	labels := make([]string, len(stats.Days))
	for i, d := range stats.Days {
		values[i] = d.CompletionRate
		labels[i] = shortDay(d.Day)
	}

	best := fmt.Sprintf("%s %s", styles.HelpStyle.Render("Best:"), styles.SuccessTextStyle.Render(stats.BestDay))
	worst := fmt.Sprintf("%s %s", styles.HelpStyle.Render("Worst:"), styles.ErrorTextStyle.Render(stats.WorstDay))

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		components.RenderBarChart(values, labels, m.cardWidth()-8, "%"),
		"",
		best+"   "+worst,
	))
}

func shortDay(day string) string {
	if len(day) > 3 {
		return day[:3]
	}
	return day
}

func (m *Model) renderTimeOfDay(dist models.TimeOfDayDistribution) string {
	counts := make([]float64, len(dist.HourlyDistribution))
	for i, c := range dist.HourlyDistribution {
		counts[i] = float64(c)
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.CardTitleStyle.Render("Time of day"),
		"",
		components.RenderHourlyHeatmap(counts),
		"",
		fmt.Sprintf("%s %s", styles.HelpStyle.Render("Peak hours:"), components.FormatHours(dist.PeakHours)),
		fmt.Sprintf("%s %s", styles.HelpStyle.Render("Best reminder times:"), components.FormatHours(dist.OptimalReminderTimes)),
	))
}
