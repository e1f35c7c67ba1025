// Package records loads habits and check-ins from the configured record store.
package records

import (
	"context"

	"github.com/j-veylop/habitlens/internal/db"
	"github.com/j-veylop/habitlens/internal/models"
)

// Source is a read-only view of a record store.
type Source interface {
	ListHabits(ctx context.Context, userID string) ([]models.Habit, error)
	GetHabit(ctx context.Context, userID, habitID string) (*models.Habit, error)
	CheckIns(ctx context.Context, userID, habitID string) ([]models.CheckRecord, error)
}

// Writer accepts imported records.
type Writer interface {
	UpsertHabit(ctx context.Context, h models.Habit) error
	UpsertCheckIn(ctx context.Context, r models.RawCheckRecord) error
}

// ErrNotFound is returned for a habit that does not exist.
var ErrNotFound = db.ErrNotFound

// Import writes the contents of an export file into w and returns the
// number of check-ins written.
func Import(ctx context.Context, w Writer, f *File) (int, error) {
	for _, h := range f.Habits {
		if err := w.UpsertHabit(ctx, h); err != nil {
			return 0, err
		}
	}
	for i, r := range f.CheckIns {
		if err := w.UpsertCheckIn(ctx, r); err != nil {
			return i, err
		}
	}
	return len(f.CheckIns), nil
}

var (
	_ Source = (*db.DB)(nil)
	_ Writer = (*db.DB)(nil)
)
