package components

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/habitlens/internal/models"
)

func TestSpinner(t *testing.T) {
	s := NewSpinner("Loading")
	if !strings.Contains(s.View(), "Loading") {
		t.Error("View should include the label")
	}

	s.Label = ""
	if s.View() == "" {
		t.Error("View returned empty")
	}

	if s.Init() == nil {
		t.Error("Init should return command")
	}
	if _, cmd := s.Update(spinner.TickMsg{}); cmd == nil {
		t.Error("Update should return command for tick")
	}

	centered := NewSpinner("Wait").ViewCentered(40, 5)
	if lipgloss.Height(centered) != 5 {
		t.Errorf("centered height = %d, want 5", lipgloss.Height(centered))
	}
}

func TestRateBar(t *testing.T) {
	bar := NewRateBar()

	if view := bar.View(50, "Read", 60); !strings.Contains(view, "50%") || !strings.Contains(view, "Read") {
		t.Errorf("View() = %q", view)
	}
	if view := bar.ViewCompact(150, 20); !strings.Contains(view, "100%") {
		t.Error("ViewCompact should clamp to 100%")
	}
	if view := bar.ViewCompact(-5, 20); !strings.Contains(view, "0%") {
		t.Error("ViewCompact should clamp to 0%")
	}
	if view := bar.ViewUnavailable("Read", "Not enough data", 60); !strings.Contains(view, "Not enough data") {
		t.Errorf("ViewUnavailable() = %q", view)
	}
}

func TestRenderLineChart(t *testing.T) {
	if got := RenderLineChart(nil, 40, 5, ""); !strings.Contains(got, "No data") {
		t.Error("empty chart should say no data")
	}
	chart := RenderLineChart([]float64{1, 2, 3, 2}, 40, 5, "last 4 weeks")
	if !strings.Contains(chart, "last 4 weeks") {
		t.Error("chart should include caption")
	}
}

func TestRollingSum(t *testing.T) {
	got := RollingSum([]float64{1, 1, 0, 1, 1}, 3)
	want := []float64{1, 2, 2, 2, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RollingSum = %v, want %v", got, want)
	}
	if got := RollingSum([]float64{1, 1}, 0); !reflect.DeepEqual(got, []float64{1, 1}) {
		t.Errorf("window 0 should behave as 1, got %v", got)
	}
}

func TestPointValues(t *testing.T) {
	points := []models.DataPoint{{Date: "2025-01-01", Value: 1}, {Date: "2025-01-02", Value: 0}}
	if got := PointValues(points); !reflect.DeepEqual(got, []float64{1, 0}) {
		t.Errorf("PointValues = %v", got)
	}
}

func TestRenderBarChart(t *testing.T) {
	if RenderBarChart(nil, nil, 40, "%") != "" {
		t.Error("empty bar chart should render nothing")
	}
	chart := RenderBarChart([]float64{100, 50}, []string{"Sun", "Mon"}, 40, "%")
	lines := strings.Split(chart, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Sun │") || !strings.HasSuffix(lines[1], "50%") {
		t.Errorf("unexpected chart:\n%s", chart)
	}
	if strings.Count(lines[0], "█") <= strings.Count(lines[1], "█") {
		t.Error("larger value should have a longer bar")
	}
}

func TestRenderHourlyHeatmap(t *testing.T) {
	counts := make([]float64, 24)
	counts[7] = 10
	heatmap := RenderHourlyHeatmap(counts)
	if !strings.HasPrefix(heatmap, "00 ") || !strings.HasSuffix(heatmap, " 23") {
		t.Errorf("heatmap = %q", heatmap)
	}
	// 24 cells plus the noon gap and labels.
	if w := lipgloss.Width(heatmap); w != 3+24+1+3 {
		t.Errorf("width = %d", w)
	}
}

func TestRenderSparkline(t *testing.T) {
	if RenderSparkline(nil, 10) != "" {
		t.Error("empty sparkline should be empty")
	}
	got := RenderSparkline([]float64{0, 1, 2, 3}, 10)
	if got != "▁▃▅█" {
		t.Errorf("sparkline = %q", got)
	}
	if n := len([]rune(RenderSparkline(make([]float64, 100), 10))); n != 10 {
		t.Errorf("sparkline should be sampled to width, got %d", n)
	}
}

func TestFormatHours(t *testing.T) {
	if got := FormatHours([]int{7, 18}); got != "07:00, 18:00" {
		t.Errorf("FormatHours = %q", got)
	}
	if FormatHours(nil) != "none" {
		t.Error("FormatHours(nil) should be none")
	}
}

func TestFormatAge(t *testing.T) {
	tests := map[time.Duration]string{
		30 * time.Second: "30s",
		5 * time.Minute:  "5m",
		3 * time.Hour:    "3h",
		50 * time.Hour:   "2d",
	}
	for d, want := range tests {
		if got := FormatAge(d); got != want {
			t.Errorf("FormatAge(%v) = %q, want %q", d, got, want)
		}
	}
}
