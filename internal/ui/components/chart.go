// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/ui/styles"
)

const noData = "No data available"

var (
	sparkChars    = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	heatmapBlocks = []rune{'░', '▒', '▓', '█'}
)

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render(noData)
	}

	return asciigraph.Plot(data,
		asciigraph.Height(max(height, 3)),
		asciigraph.Width(max(width, 20)),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Blue),
	)
}

// PointValues extracts the values of trend data points.
func PointValues(points []models.DataPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// RollingSum returns, for each index, the sum of the window values ending there.
func RollingSum(values []float64, window int) []float64 {
	if window <= 0 {
		window = 1
	}
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum
	}
	return out
}

func scale(values []float64) float64 {
	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		return 1
	}
	return maxVal
}

func level(v, maxVal float64, levels int) int {
	return max(0, min(int(v/maxVal*float64(levels-1)), levels-1))
}

// RenderBarChart creates a horizontal bar chart. unit is appended to each value.
func RenderBarChart(values []float64, labels []string, width int, unit string) string {
	if len(values) == 0 {
		return ""
	}

	maxVal := scale(values)
	labelWidth := 0
	for _, l := range labels {
		labelWidth = max(labelWidth, lipgloss.Width(l))
	}
	barWidth := max(width-labelWidth-10, 10)

	lines := make([]string, 0, len(values))
	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		bar := strings.Repeat("█", max(int(v/maxVal*float64(barWidth)), 0))
		lines = append(lines, fmt.Sprintf("%*s │%s %.0f%s", labelWidth, label, bar, v, unit))
	}

	return strings.Join(lines, "\n")
}

// RenderHourlyHeatmap renders 24 hourly counts as a single colored strip.
func RenderHourlyHeatmap(counts []float64) string {
	hours := make([]float64, 24)
	copy(hours, counts)
	maxVal := scale(hours)

	colors := []lipgloss.Color{styles.Subtle, styles.Info, styles.Warning, styles.Success}

	var b strings.Builder
	b.WriteString("00 ")
	for i, v := range hours {
		lvl := level(v, maxVal, len(heatmapBlocks))
		if v > 0 {
			lvl = max(lvl, 1)
		}
		b.WriteString(lipgloss.NewStyle().Foreground(colors[lvl]).Render(string(heatmapBlocks[lvl])))
		if i == 11 {
			b.WriteString(" ")
		}
	}
	b.WriteString(" 23")
	return b.String()
}

// RenderSparkline creates a compact inline sparkline sampled to width.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	maxVal := scale(values)
	step := max(float64(len(values))/float64(width), 1)

	var b strings.Builder
	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		b.WriteRune(sparkChars[level(values[int(float64(i)*step)], maxVal, len(sparkChars))])
	}
	return b.String()
}

// FormatHours renders hours of day as "07:00, 18:00".
func FormatHours(hours []int) string {
	if len(hours) == 0 {
		return "none"
	}
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = fmt.Sprintf("%02d:00", h)
	}
	return strings.Join(parts, ", ")
}

// FormatAge renders a duration in its largest whole unit: 30s, 5m, 3h, 2d.
func FormatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
