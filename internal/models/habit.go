package models

import "time"

// Habit holds the metadata needed to compute analytics for a habit.
type Habit struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"userId"`
	Name      string    `json:"name" bson:"name"`
	StartDate time.Time `json:"startDate" bson:"startDate"`
	Archived  bool      `json:"archived,omitempty" bson:"archived,omitempty"`
}

// DisplayName returns the name, falling back to the ID.
func (h Habit) DisplayName() string {
	if h.Name != "" {
		return h.Name
	}
	return h.ID
}
