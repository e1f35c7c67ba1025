// Package models defines data structures and domain types.
package models

import "time"

// DateKeyLayout is the calendar-day format used for check-in keys.
const DateKeyLayout = "2006-01-02"

// CompletionKind identifies which representation a stored completion flag uses.
type CompletionKind int

const (
	// CompletionUnspecified means the record carries no completion flag at all.
	CompletionUnspecified CompletionKind = iota
	// CompletionBoolean is the current explicit boolean flag.
	CompletionBoolean
	// CompletionLegacyStatus is the older free-form status string.
	CompletionLegacyStatus
)

// LegacyStatusDone is the only legacy status value that counts as completed.
const LegacyStatusDone = "done"

// Completion is the tagged union of the ways a check-in may record completion.
type Completion struct {
	Kind   CompletionKind
	Done   bool
	Status string
}

// BooleanCompletion builds an authoritative boolean completion.
func BooleanCompletion(done bool) Completion {
	return Completion{Kind: CompletionBoolean, Done: done}
}

// LegacyCompletion builds a completion from a legacy status string.
func LegacyCompletion(status string) Completion {
	return Completion{Kind: CompletionLegacyStatus, Status: status}
}

// Resolve collapses the union into a single completed flag.
// A record with no flag at all is treated as completed.
func (c Completion) Resolve() bool {
	switch c.Kind {
	case CompletionBoolean:
		return c.Done
	case CompletionLegacyStatus:
		return c.Status == LegacyStatusDone
	default:
		return true
	}
}

// RawCheckRecord is a check-in exactly as it comes out of a record store.
type RawCheckRecord struct {
	HabitID       string     `json:"habitId" bson:"habitId"`
	UserID        string     `json:"userId" bson:"userId"`
	DateKey       string     `json:"dateKey" bson:"dateKey"`
	CompletedAt   *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
	IsCompleted   *bool      `json:"isCompleted,omitempty" bson:"isCompleted,omitempty"`
	Status        *string    `json:"status,omitempty" bson:"status,omitempty"`
	ProgressValue *float64   `json:"progressValue,omitempty" bson:"progressValue,omitempty"`
}

// Completion returns the tagged completion stored on the raw record.
// The boolean flag wins when both are present.
func (r RawCheckRecord) Completion() Completion {
	switch {
	case r.IsCompleted != nil:
		return BooleanCompletion(*r.IsCompleted)
	case r.Status != nil:
		return LegacyCompletion(*r.Status)
	default:
		return Completion{}
	}
}

// ToCheckRecord resolves the raw record into the form used by calculations.
func (r RawCheckRecord) ToCheckRecord() CheckRecord {
	return CheckRecord{
		DateKey:       r.DateKey,
		CompletedAt:   r.CompletedAt,
		Timestamp:     r.Timestamp,
		Completed:     r.Completion().Resolve(),
		ProgressValue: r.ProgressValue,
	}
}

// ResolveAll converts a batch of raw records.
func ResolveAll(raw []RawCheckRecord) []CheckRecord {
	records := make([]CheckRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, r.ToCheckRecord())
	}
	return records
}

// CheckRecord is one daily check-in for a habit.
type CheckRecord struct {
	DateKey       string     `json:"dateKey"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	Completed     bool       `json:"completed"`
	ProgressValue *float64   `json:"progressValue,omitempty"`
}

// EventTime returns the time used for hour-of-day bucketing.
func (c CheckRecord) EventTime() (time.Time, bool) {
	if c.Timestamp != nil {
		return *c.Timestamp, true
	}
	if c.CompletedAt != nil {
		return *c.CompletedAt, true
	}
	return time.Time{}, false
}

// Date parses the record's date key.
func (c CheckRecord) Date() (time.Time, bool) {
	return ParseDateKey(c.DateKey)
}

// ParseDateKey parses a YYYY-MM-DD key as a UTC calendar day.
func ParseDateKey(key string) (time.Time, bool) {
	t, err := time.Parse(DateKeyLayout, key)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateKeyOf formats the calendar day of t in its own location.
func DateKeyOf(t time.Time) string {
	return t.Format(DateKeyLayout)
}
