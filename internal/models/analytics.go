package models

import "time"

// TrendPeriod identifies a trend lookback window.
type TrendPeriod string

const (
	// TrendFourWeeks compares the last 4 weeks with the 4 weeks before.
	TrendFourWeeks TrendPeriod = "4W"
	// TrendThreeMonths compares the last 3 months with the 3 months before.
	TrendThreeMonths TrendPeriod = "3M"
	// TrendSixMonths compares the last 6 months with the 6 months before.
	TrendSixMonths TrendPeriod = "6M"
	// TrendOneYear compares the last year with the year before.
	TrendOneYear TrendPeriod = "1Y"
)

// TrendPeriods lists every period in display order.
var TrendPeriods = []TrendPeriod{TrendFourWeeks, TrendThreeMonths, TrendSixMonths, TrendOneYear}

// Days returns the window length in days, or 0 for an unknown period.
func (p TrendPeriod) Days() int {
	switch p {
	case TrendFourWeeks:
		return 28
	case TrendThreeMonths:
		return 90
	case TrendSixMonths:
		return 180
	case TrendOneYear:
		return 365
	default:
		return 0
	}
}

// Valid reports whether p is one of the known periods.
func (p TrendPeriod) Valid() bool {
	return p.Days() > 0
}

// String returns the display name for a period.
func (p TrendPeriod) String() string {
	switch p {
	case TrendFourWeeks:
		return "4 Weeks"
	case TrendThreeMonths:
		return "3 Months"
	case TrendSixMonths:
		return "6 Months"
	case TrendOneYear:
		return "1 Year"
	default:
		return "Unknown"
	}
}

// Next cycles to the next period.
func (p TrendPeriod) Next() TrendPeriod {
	for i, period := range TrendPeriods {
		if period == p {
			return TrendPeriods[(i+1)%len(TrendPeriods)]
		}
	}
	return TrendFourWeeks
}

// Direction is the coarse direction of a trend.
type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
)

// DataPoint is one check-in plotted on a trend chart.
type DataPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// TrendSummary compares a window against the equally long window before it.
type TrendSummary struct {
	Period           TrendPeriod `json:"period"`
	CompletionRate   float64     `json:"completionRate"`
	PreviousRate     float64     `json:"previousRate"`
	PercentageChange float64     `json:"percentageChange"`
	Direction        Direction   `json:"direction"`
	DataPoints       []DataPoint `json:"dataPoints"`
}

// Trends holds one summary per period.
type Trends struct {
	FourWeeks   TrendSummary `json:"4W"`
	ThreeMonths TrendSummary `json:"3M"`
	SixMonths   TrendSummary `json:"6M"`
	OneYear     TrendSummary `json:"1Y"`
}

// Get returns the summary for a period.
func (t *Trends) Get(p TrendPeriod) TrendSummary {
	switch p {
	case TrendThreeMonths:
		return t.ThreeMonths
	case TrendSixMonths:
		return t.SixMonths
	case TrendOneYear:
		return t.OneYear
	default:
		return t.FourWeeks
	}
}

// Set stores the summary for its period.
func (t *Trends) Set(s TrendSummary) {
	switch s.Period {
	case TrendFourWeeks:
		t.FourWeeks = s
	case TrendThreeMonths:
		t.ThreeMonths = s
	case TrendSixMonths:
		t.SixMonths = s
	case TrendOneYear:
		t.OneYear = s
	}
}

// DayStats aggregates check-ins that fell on one weekday.
type DayStats struct {
	Day              string  `json:"day"`
	CompletionRate   float64 `json:"completionRate"`
	TotalCompletions int     `json:"totalCompletions"`
	TotalScheduled   int     `json:"totalScheduled"`
}

// DayOfWeekStats holds per-weekday stats, Sunday first.
type DayOfWeekStats struct {
	Days     []DayStats `json:"days"`
	BestDay  string     `json:"bestDay"`
	WorstDay string     `json:"worstDay"`
}

// TimeOfDayDistribution counts completions per hour of day.
type TimeOfDayDistribution struct {
	HourlyDistribution   [24]int `json:"hourlyDistribution"`
	PeakHours            []int   `json:"peakHours"`
	OptimalReminderTimes []int   `json:"optimalReminderTimes"`
}

// AnalyticsResult is the full analytics picture for one habit.
// Results are replaced wholesale, never patched.
type AnalyticsResult struct {
	UserID                string                `json:"userId"`
	HabitID               string                `json:"habitId"`
	CurrentStreak         int                   `json:"currentStreak"`
	LongestStreak         int                   `json:"longestStreak"`
	CompletionRate        float64               `json:"completionRate"`
	TotalCompletions      int                   `json:"totalCompletions"`
	Trends                Trends                `json:"trends"`
	DayOfWeekStats        DayOfWeekStats        `json:"dayOfWeekStats"`
	TimeOfDayDistribution TimeOfDayDistribution `json:"timeOfDayDistribution"`
	CalculatedAt          time.Time             `json:"calculatedAt"`
}
