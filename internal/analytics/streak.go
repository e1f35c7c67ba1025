// Package analytics computes streaks, completion rates, distributions and trends
// from resolved check-in records. Every function here is total: bad input
// degrades to zero values rather than an error.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/j-veylop/habitlens/internal/models"
)

const day = 24 * time.Hour

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// daysBetween returns the whole days from a to b. Both must be UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / day)
}

// DateSet builds a lookup set from date keys.
func DateSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// CurrentStreak counts consecutive days present in dates, ending at today.
// If today itself is absent the streak is 0.
func CurrentStreak(dates map[string]struct{}, today string) int {
	cursor, ok := models.ParseDateKey(today)
	if !ok {
		return 0
	}

	streak := 0
	for {
		if _, ok := dates[models.DateKeyOf(cursor)]; !ok {
			return streak
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
}

// LongestStreak returns the longest run of consecutive days in keys.
// Duplicate and unparseable keys are ignored.
func LongestStreak(keys []string) int {
	days := make([]time.Time, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		d, ok := models.ParseDateKey(k)
		if !ok {
			continue
		}
		seen[k] = struct{}{}
		days = append(days, d)
	}
	if len(days) == 0 {
		return 0
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if daysBetween(days[i-1], days[i]) == 1 {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

// CompletionRate is the share of days since habitStart (inclusive of both
// ends) that have a completion, as a percentage rounded to two places.
// habitStart is read as a calendar day in loc, the zone today was taken in.
func CompletionRate(completed int, habitStart time.Time, today string, loc *time.Location) float64 {
	if loc == nil {
		loc = time.UTC
	}
	start, ok := models.ParseDateKey(models.DateKeyOf(habitStart.In(loc)))
	if !ok {
		return 0
	}
	end, ok := models.ParseDateKey(today)
	if !ok {
		return 0
	}

	totalDays := daysBetween(start, end) + 1
	if totalDays <= 0 || completed <= 0 {
		return 0
	}
	return min(Round2(float64(completed)/float64(totalDays)*100), 100)
}
