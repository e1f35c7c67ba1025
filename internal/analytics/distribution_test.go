package analytics

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/j-veylop/habitlens/internal/models"
)

func completedOn(keys ...string) []models.CheckRecord {
	records := make([]models.CheckRecord, 0, len(keys))
	for _, k := range keys {
		records = append(records, models.CheckRecord{DateKey: k, Completed: true})
	}
	return records
}

func TestCompletionRateInRange(t *testing.T) {
	records := append(completedOn("2025-01-01", "2025-01-02", "2025-01-11"),
		models.CheckRecord{DateKey: "2025-01-03", Completed: false})

	tests := []struct {
		name       string
		start, end string
		want       float64
	}{
		{"ten day span", "2025-01-01", "2025-01-10", 20},
		{"single day", "2025-01-02", "2025-01-02", 100},
		{"reversed span", "2025-01-10", "2025-01-01", 0},
		{"bad start", "soon", "2025-01-10", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompletionRateInRange(records, tt.start, tt.end); got != tt.want {
				t.Errorf("CompletionRateInRange() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDayOfWeek(t *testing.T) {
	// 2025-01-05 is a Sunday, 2025-01-06 a Monday.
	records := []models.CheckRecord{
		{DateKey: "2025-01-05", Completed: true},
		{DateKey: "2025-01-12", Completed: false},
		{DateKey: "2025-01-06", Completed: true},
		{DateKey: "2025-01-13", Completed: true},
		{DateKey: "2025-01-07", Completed: false},
		{DateKey: "not-a-date", Completed: true},
	}

	stats := DayOfWeek(records)
	if len(stats.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(stats.Days))
	}
	if stats.Days[0].Day != "Sunday" || stats.Days[0].CompletionRate != 50 || stats.Days[0].TotalScheduled != 2 {
		t.Errorf("unexpected Sunday stats: %+v", stats.Days[0])
	}
	if stats.Days[1].CompletionRate != 100 {
		t.Errorf("Monday rate = %v, want 100", stats.Days[1].CompletionRate)
	}
	if stats.BestDay != "Monday" {
		t.Errorf("BestDay = %s, want Monday", stats.BestDay)
	}
	// Tuesday through Saturday all sit at 0; the first one wins.
	if stats.WorstDay != "Tuesday" {
		t.Errorf("WorstDay = %s, want Tuesday", stats.WorstDay)
	}
}

func TestDayOfWeekEmpty(t *testing.T) {
	stats := DayOfWeek(nil)
	if stats.BestDay != "Sunday" || stats.WorstDay != "Sunday" {
		t.Errorf("empty input should tie on Sunday, got best=%s worst=%s", stats.BestDay, stats.WorstDay)
	}
}

func TestTimeOfDay(t *testing.T) {
	var records []models.CheckRecord
	for i, h := range []int{9, 9, 9, 18, 18, 18, 18, 10} {
		at := time.Date(2025, 1, 1+i, h, 15, 0, 0, time.UTC)
		records = append(records, models.CheckRecord{
			DateKey:     fmt.Sprintf("2025-01-%02d", 1+i),
			CompletedAt: &at,
			Completed:   true,
		})
	}
	skipped := time.Date(2025, 1, 20, 3, 0, 0, 0, time.UTC)
	records = append(records,
		models.CheckRecord{DateKey: "2025-01-20", CompletedAt: &skipped, Completed: false},
		models.CheckRecord{DateKey: "2025-01-21", Completed: true},
	)

	dist := TimeOfDay(records, time.UTC)
	if !reflect.DeepEqual(dist.PeakHours, []int{18, 9, 10}) {
		t.Errorf("PeakHours = %v, want [18 9 10]", dist.PeakHours)
	}
	if !reflect.DeepEqual(dist.OptimalReminderTimes, []int{17, 8, 9}) {
		t.Errorf("OptimalReminderTimes = %v, want [17 8 9]", dist.OptimalReminderTimes)
	}
	if dist.HourlyDistribution[3] != 0 {
		t.Error("incomplete record should not be counted")
	}
}

func TestTimeOfDayMidnightReminder(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 5, 0, 0, time.UTC)
	dist := TimeOfDay([]models.CheckRecord{{DateKey: "2025-01-01", Timestamp: &at, Completed: true}}, nil)
	if !reflect.DeepEqual(dist.OptimalReminderTimes, []int{23}) {
		t.Errorf("OptimalReminderTimes = %v, want [23]", dist.OptimalReminderTimes)
	}
}

func TestTrendFromZero(t *testing.T) {
	today := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	var keys []string
	for i := range 20 {
		keys = append(keys, models.DateKeyOf(today.AddDate(0, 0, -i)))
	}

	summary, ok := Trend(completedOn(keys...), models.TrendFourWeeks, models.DateKeyOf(today))
	if !ok {
		t.Fatal("expected a trend")
	}
	if summary.PercentageChange != 100 {
		t.Errorf("PercentageChange = %v, want 100", summary.PercentageChange)
	}
	if summary.Direction != models.DirectionUp {
		t.Errorf("Direction = %s, want up", summary.Direction)
	}
	if summary.CompletionRate != 71.43 {
		t.Errorf("CompletionRate = %v, want 71.43", summary.CompletionRate)
	}
	if len(summary.DataPoints) != 20 || summary.DataPoints[0].Date > summary.DataPoints[19].Date {
		t.Errorf("expected 20 ascending data points, got %v", summary.DataPoints)
	}
}

func TestTrendDirections(t *testing.T) {
	tests := []struct {
		prev, cur float64
		change    float64
		direction models.Direction
	}{
		{0, 0, 0, models.DirectionStable},
		{0, 10, 100, models.DirectionUp},
		{50, 52, 4, models.DirectionStable},
		{50, 40, -20, models.DirectionDown},
		{40, 50, 25, models.DirectionUp},
	}
	for _, tt := range tests {
		change := PercentageChange(tt.prev, tt.cur)
		if Round2(change) != tt.change {
			t.Errorf("PercentageChange(%v, %v) = %v, want %v", tt.prev, tt.cur, change, tt.change)
		}
		if got := DirectionOf(change); got != tt.direction {
			t.Errorf("DirectionOf(%v) = %s, want %s", change, got, tt.direction)
		}
	}
}

func TestTrendUnknownPeriod(t *testing.T) {
	if _, ok := Trend(nil, models.TrendPeriod("2W"), "2025-01-01"); ok {
		t.Error("unknown period should fail")
	}
}

func TestTrendDataPointValues(t *testing.T) {
	progress := 2.5
	records := []models.CheckRecord{
		{DateKey: "2025-01-10", Completed: true, ProgressValue: &progress},
		{DateKey: "2025-01-09", Completed: false},
		{DateKey: "2025-01-08", Completed: true},
		{DateKey: "2024-01-01", Completed: true},
	}
	summary, _ := Trend(records, models.TrendFourWeeks, "2025-01-10")
	want := []models.DataPoint{{Date: "2025-01-08", Value: 1}, {Date: "2025-01-09", Value: 0}, {Date: "2025-01-10", Value: 2.5}}
	if !reflect.DeepEqual(summary.DataPoints, want) {
		t.Errorf("DataPoints = %v, want %v", summary.DataPoints, want)
	}
}

func TestDistributionIsDeterministic(t *testing.T) {
	habit := models.Habit{ID: "h", UserID: "u", StartDate: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)}
	records := completedOn("2025-01-10", "2025-01-09", "2024-12-20", "2024-12-21")

	run := func() []any {
		trend, _ := Trend(records, models.TrendThreeMonths, "2025-01-10")
		return []any{
			Summarize(habit, records, "2025-01-10", time.UTC),
			DayOfWeek(records),
			TimeOfDay(records, time.UTC),
			trend,
		}
	}
	a, b := run(), run()
	if !reflect.DeepEqual(a, b) {
		t.Error("identical input should yield identical output")
	}
	if s := a[0].(Summary); s.CurrentStreak != 2 || s.LongestStreak != 2 {
		t.Errorf("unexpected streaks: current=%d longest=%d", s.CurrentStreak, s.LongestStreak)
	}
}
