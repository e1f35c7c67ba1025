package habits

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/services"
	"github.com/j-veylop/habitlens/internal/ui/components"
	"github.com/j-veylop/habitlens/internal/ui/styles"
)

// View renders the habits tab.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return m.spinner.ViewCentered(m.width, m.height)
	}

	habits := m.state.GetHabits()
	content := lipgloss.JoinVertical(lipgloss.Left, m.renderTitle(len(habits)), m.renderList(habits))
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle(count int) string {
	title := styles.TitleStyle.Render("Habits")

	subtitle := fmt.Sprintf("%d habits", count)
	if count == 1 {
		subtitle = "1 habit"
	}
	if last := m.state.GetLastUpdated(); !last.IsZero() {
		subtitle += " · updated " + components.FormatAge(time.Since(last)) + " ago"
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, styles.HelpStyle.Render(subtitle), "")
}

func (m *Model) renderList(habits []services.HabitAnalytics) string {
	cardWidth := max(m.width-6, 40)

	if len(habits) == 0 {
		rows := []string{
			styles.CardTitleStyle.Render("No habits yet"),
			"",
			styles.HelpStyle.Render("Import an export with `habitlens import <file>`"),
			styles.HelpStyle.Render("or point RECORDS_SOURCE at your records."),
		}
		return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	selected := m.state.GetSelectedHabitIndex()
	divider := lipgloss.NewStyle().Foreground(styles.Subtle).Render(strings.Repeat("─", max(cardWidth-6, 10)))

	rows := make([]string, 0, len(habits)*3)
	for i, h := range habits {
		if i > 0 {
			rows = append(rows, divider)
		}
		rows = append(rows, m.renderHabit(h, i == selected, cardWidth-6))
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderHabit(h services.HabitAnalytics, selected bool, width int) string {
	prefix := "  "
	nameStyle := lipgloss.NewStyle().Foreground(styles.TextPrimary)
	if selected {
		prefix = styles.CardTitleStyle.Render("▸ ")
		nameStyle = styles.CardTitleStyle
	}

	name := nameStyle.Render(h.Habit.DisplayName())
	if h.Habit.Archived {
		name += styles.HelpStyle.Render(" (archived)")
	}

	if h.Err != nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			prefix+name,
			"  "+m.bar.ViewUnavailable("Completion", h.Err.Message, width),
		)
	}
	if h.Analytics == nil || h.Analytics.Result == nil {
		return lipgloss.JoinVertical(lipgloss.Left, prefix+name, "  "+styles.HelpStyle.Render("Calculating..."))
	}

	r := h.Analytics.Result
	header := fmt.Sprintf("%s%s  %s", prefix, name, renderStreak(r))

	rate := m.displayedRate(h.Habit.ID, r.CompletionRate)
	bar := "  " + m.bar.View(rate, "Completion", width)

	return lipgloss.JoinVertical(lipgloss.Left, header, bar, "  "+renderDetails(h.Analytics, width))
}

func renderStreak(r *models.AnalyticsResult) string {
	current := styles.StreakStyle.Render(fmt.Sprintf("%d day streak", r.CurrentStreak))
	if r.CurrentStreak == 0 {
		current = styles.HelpStyle.Render("no streak")
	}
	return current + styles.HelpStyle.Render(fmt.Sprintf(" · best %d", r.LongestStreak))
}

func renderDetails(a *services.Analytics, width int) string {
	r := a.Result
	trend := r.Trends.Get(models.TrendFourWeeks)

	parts := []string{
		styles.TrendStyle(trend.Direction).Render(
			fmt.Sprintf("%s %+.0f%% vs prev 4W", styles.TrendArrow(trend.Direction), trend.PercentageChange)),
		components.RenderSparkline(components.RollingSum(components.PointValues(trend.DataPoints), 7), 14),
		styles.HelpStyle.Render(fmt.Sprintf("%d check-ins", r.TotalCompletions)),
	}

	switch {
	case a.Stale:
		parts = append(parts, styles.StaleStyle.Render("offline · "+components.FormatAge(a.Age)+" old"))
	case a.FromCache:
		parts = append(parts, styles.HelpStyle.Render("cached "+components.FormatAge(a.Age)+" ago"))
	}

	return lipgloss.NewStyle().MaxWidth(width).Render(strings.Join(parts, "  "))
}
