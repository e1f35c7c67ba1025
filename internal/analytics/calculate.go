package analytics

import (
	"time"

	"github.com/j-veylop/habitlens/internal/models"
)

// Summary holds the streak and rate figures computed on the caller's goroutine.
type Summary struct {
	CurrentStreak    int
	LongestStreak    int
	CompletionRate   float64
	TotalCompletions int
}

// CompletedKeys returns the date keys of completed records.
func CompletedKeys(records []models.CheckRecord) []string {
	keys := make([]string, 0, len(records))
	for _, r := range records {
		if r.Completed {
			keys = append(keys, r.DateKey)
		}
	}
	return keys
}

// Summarize computes streaks and the overall completion rate. Both streaks
// come from the same completed set, so LongestStreak >= CurrentStreak.
// today is a date key in loc.
func Summarize(habit models.Habit, records []models.CheckRecord, today string, loc *time.Location) Summary {
	keys := CompletedKeys(records)
	distinct := DateSet(keys)

	current := CurrentStreak(distinct, today)
	longest := max(LongestStreak(keys), current)

	return Summary{
		CurrentStreak:    current,
		LongestStreak:    longest,
		CompletionRate:   CompletionRate(len(distinct), habit.StartDate, today, loc),
		TotalCompletions: len(distinct),
	}
}

// Assemble builds a result from the summary and the distribution figures.
func Assemble(habit models.Habit, s Summary, trends models.Trends, dow models.DayOfWeekStats,
	tod models.TimeOfDayDistribution, now time.Time,
) *models.AnalyticsResult {
	return &models.AnalyticsResult{
		UserID:                habit.UserID,
		HabitID:               habit.ID,
		CurrentStreak:         s.CurrentStreak,
		LongestStreak:         s.LongestStreak,
		CompletionRate:        s.CompletionRate,
		TotalCompletions:      s.TotalCompletions,
		Trends:                trends,
		DayOfWeekStats:        dow,
		TimeOfDayDistribution: tod,
		CalculatedAt:          now,
	}
}
