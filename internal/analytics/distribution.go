package analytics

import (
	"sort"
	"time"

	"github.com/j-veylop/habitlens/internal/models"
)

// trendThreshold is the percentage change beyond which a trend is up or down.
const trendThreshold = 5.0

// maxPeakHours caps the number of peak hours reported.
const maxPeakHours = 3

// CompletionRateInRange returns the percentage of days in [start, end]
// (inclusive) that have a completed record. A non-positive span yields 0.
func CompletionRateInRange(records []models.CheckRecord, start, end string) float64 {
	from, ok := models.ParseDateKey(start)
	if !ok {
		return 0
	}
	to, ok := models.ParseDateKey(end)
	if !ok {
		return 0
	}
	return rateInWindow(records, from, to)
}

func rateInWindow(records []models.CheckRecord, from, to time.Time) float64 {
	totalDays := daysBetween(from, to) + 1
	if totalDays <= 0 {
		return 0
	}

	completed := 0
	for _, r := range records {
		if !r.Completed {
			continue
		}
		d, ok := r.Date()
		if !ok || d.Before(from) || d.After(to) {
			continue
		}
		completed++
	}

	rate := float64(completed) / float64(totalDays) * 100
	return min(max(rate, 0), 100)
}

// DayOfWeek aggregates records by the weekday of their date key.
// Best and worst days go to the first weekday, Sunday first, on ties.
func DayOfWeek(records []models.CheckRecord) models.DayOfWeekStats {
	var completions, scheduled [7]int
	for _, r := range records {
		d, ok := r.Date()
		if !ok {
			continue
		}
		wd := d.Weekday()
		scheduled[wd]++
		if r.Completed {
			completions[wd]++
		}
	}

	stats := models.DayOfWeekStats{Days: make([]models.DayStats, 7)}
	best, worst := 0, 0
	for wd := range 7 {
		rate := 0.0
		if scheduled[wd] > 0 {
			rate = Round2(float64(completions[wd]) / float64(scheduled[wd]) * 100)
		}
		stats.Days[wd] = models.DayStats{
			Day:              time.Weekday(wd).String(),
			CompletionRate:   rate,
			TotalCompletions: completions[wd],
			TotalScheduled:   scheduled[wd],
		}
		if rate > stats.Days[best].CompletionRate {
			best = wd
		}
		if rate < stats.Days[worst].CompletionRate {
			worst = wd
		}
	}
	stats.BestDay = stats.Days[best].Day
	stats.WorstDay = stats.Days[worst].Day
	return stats
}

// TimeOfDay buckets completed records by hour in loc. Records without any
// timestamp are skipped.
func TimeOfDay(records []models.CheckRecord, loc *time.Location) models.TimeOfDayDistribution {
	if loc == nil {
		loc = time.UTC
	}

	var dist models.TimeOfDayDistribution
	for _, r := range records {
		if !r.Completed {
			continue
		}
		t, ok := r.EventTime()
		if !ok {
			continue
		}
		dist.HourlyDistribution[t.In(loc).Hour()]++
	}

	hours := make([]int, 0, 24)
	for h, n := range dist.HourlyDistribution {
		if n > 0 {
			hours = append(hours, h)
		}
	}
	sort.SliceStable(hours, func(i, j int) bool {
		return dist.HourlyDistribution[hours[i]] > dist.HourlyDistribution[hours[j]]
	})
	if len(hours) > maxPeakHours {
		hours = hours[:maxPeakHours]
	}

	dist.PeakHours = hours
	dist.OptimalReminderTimes = make([]int, len(hours))
	for i, h := range hours {
		dist.OptimalReminderTimes[i] = (h + 23) % 24
	}
	return dist
}

// Trend compares the period ending today with the equally long period
// immediately before it. ok is false for an unknown period or date.
func Trend(records []models.CheckRecord, period models.TrendPeriod, today string) (models.TrendSummary, bool) {
	n := period.Days()
	end, valid := models.ParseDateKey(today)
	if n == 0 || !valid {
		return models.TrendSummary{}, false
	}

	curStart := end.AddDate(0, 0, -(n - 1))
	prevEnd := curStart.AddDate(0, 0, -1)
	prevStart := prevEnd.AddDate(0, 0, -(n - 1))

	current := rateInWindow(records, curStart, end)
	previous := rateInWindow(records, prevStart, prevEnd)
	change := PercentageChange(previous, current)

	return models.TrendSummary{
		Period:           period,
		CompletionRate:   Round2(current),
		PreviousRate:     Round2(previous),
		PercentageChange: Round2(change),
		Direction:        DirectionOf(change),
		DataPoints:       dataPoints(records, curStart, end),
	}, true
}

// PercentageChange returns the relative change from previous to current.
func PercentageChange(previous, current float64) float64 {
	switch {
	case previous == 0 && current == 0:
		return 0
	case previous == 0:
		return 100
	default:
		return (current - previous) / previous * 100
	}
}

// DirectionOf maps a percentage change onto a trend direction.
func DirectionOf(change float64) models.Direction {
	switch {
	case change > trendThreshold:
		return models.DirectionUp
	case change < -trendThreshold:
		return models.DirectionDown
	default:
		return models.DirectionStable
	}
}

func dataPoints(records []models.CheckRecord, from, to time.Time) []models.DataPoint {
	points := make([]models.DataPoint, 0)
	for _, r := range records {
		d, ok := r.Date()
		if !ok || d.Before(from) || d.After(to) {
			continue
		}
		value := 0.0
		switch {
		case r.ProgressValue != nil:
			value = *r.ProgressValue
		case r.Completed:
			value = 1
		}
		points = append(points, models.DataPoint{Date: r.DateKey, Value: value})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}
