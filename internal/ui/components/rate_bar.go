package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/habitlens/internal/ui/styles"
)

const (
	rateLabelWidth   = 15
	ratePercentWidth = 6
	minRateBarWidth  = 10
)

// RateBar renders a completion rate as a gradient progress bar.
type RateBar struct {
	progress progress.Model
}

// NewRateBar creates a rate bar running from red at 0% to green at 100%.
func NewRateBar() RateBar {
	return RateBar{
		progress: progress.New(
			progress.WithScaledGradient("#ff6b6b", "#51cf66"),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
	}
}

func clampPercent(p float64) float64 {
	return max(0, min(p, 100))
}

// View renders label, bar and percentage within width.
func (r RateBar) View(percent float64, label string, width int) string {
	percent = clampPercent(percent)
	r.progress.Width = max(width-rateLabelWidth-ratePercentWidth-1, minRateBarWidth)

	labelStr := styles.ProgressLabelStyle.Width(rateLabelWidth).Render(label)
	percentStr := styles.RateStyle(percent).Width(ratePercentWidth).Align(lipgloss.Right).
		Render(fmt.Sprintf("%.0f%%", percent))

	return lipgloss.JoinHorizontal(lipgloss.Center, labelStr, r.progress.ViewAs(percent/100), " ", percentStr)
}

// ViewCompact renders the bar and percentage without a label.
func (r RateBar) ViewCompact(percent float64, width int) string {
	percent = clampPercent(percent)
	r.progress.Width = max(width-ratePercentWidth-2, 5)

	percentStr := styles.RateStyle(percent).Render(fmt.Sprintf("%.0f%%", percent))
	return lipgloss.JoinHorizontal(lipgloss.Center, r.progress.ViewAs(percent/100), " ", percentStr)
}

// ViewUnavailable renders a placeholder where a rate could not be computed.
func (r RateBar) ViewUnavailable(label, reason string, width int) string {
	labelStr := styles.ProgressLabelStyle.Width(rateLabelWidth).Render(label)
	return lipgloss.JoinHorizontal(lipgloss.Center, labelStr,
		styles.HelpStyle.MaxWidth(max(width-rateLabelWidth, minRateBarWidth)).Render(reason))
}
