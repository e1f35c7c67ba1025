package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/habitlens/internal/logger"
	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/retry"
)

// ErrNotFound is returned when a habit does not exist for the user.
var ErrNotFound = errors.New("not found")

// UpsertHabit inserts or replaces a habit's metadata.
func (db *DB) UpsertHabit(ctx context.Context, h models.Habit) error {
	query := `
		INSERT INTO habits (id, user_id, name, start_date, archived)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			start_date = excluded.start_date,
			archived = excluded.archived
	`

	_, err := db.ExecContext(ctx, query,
		h.ID,
		h.UserID,
		h.Name,
		h.StartDate.UTC().Format(sqlTimeLayout),
		boolToInt(h.Archived),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert habit: %w", err)
	}
	return nil
}

// GetHabit returns one habit owned by userID. A habit that exists but
// belongs to someone else yields retry.ErrPermissionDenied.
func (db *DB) GetHabit(ctx context.Context, userID, habitID string) (*models.Habit, error) {
	query := `
		SELECT id, user_id, name, start_date, archived
		FROM habits
		WHERE id = ?
	`

	h, err := scanHabit(db.QueryRowContext(ctx, query, habitID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("habit %s: %w", habitID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query habit: %w", err)
	}
	if h.UserID != userID {
		return nil, fmt.Errorf("habit %s: %w", habitID, retry.ErrPermissionDenied)
	}
	return h, nil
}

// ListHabits returns every habit of userID ordered by name.
func (db *DB) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	query := `
		SELECT id, user_id, name, start_date, archived
		FROM habits
		WHERE user_id = ?
		ORDER BY name, id
	`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (*models.Habit, error) {
	var h models.Habit
	var start string
	var archived int
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &start, &archived); err != nil {
		return nil, err
	}
	h.StartDate = parseTime(start)
	h.Archived = archived != 0
	return &h, nil
}

// UpsertCheckIn stores a check-in, replacing any existing one for that day.
func (db *DB) UpsertCheckIn(ctx context.Context, r models.RawCheckRecord) error {
	query := `
		INSERT INTO checkins (
			habit_id, user_id, date_key, completed_at, timestamp,
			is_completed, status, progress_value
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(habit_id, date_key) DO UPDATE SET
			completed_at = excluded.completed_at,
			timestamp = excluded.timestamp,
			is_completed = excluded.is_completed,
			status = excluded.status,
			progress_value = excluded.progress_value
	`

	var isCompleted sql.NullInt64
	if r.IsCompleted != nil {
		isCompleted = sql.NullInt64{Int64: int64(boolToInt(*r.IsCompleted)), Valid: true}
	}
	var status sql.NullString
	if r.Status != nil {
		status = sql.NullString{String: *r.Status, Valid: true}
	}
	var progress sql.NullFloat64
	if r.ProgressValue != nil {
		progress = sql.NullFloat64{Float64: *r.ProgressValue, Valid: true}
	}

	_, err := db.ExecContext(ctx, query,
		r.HabitID,
		r.UserID,
		r.DateKey,
		nullTime(r.CompletedAt),
		nullTime(r.Timestamp),
		isCompleted,
		status,
		progress,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert check-in: %w", err)
	}
	return nil
}

// RawCheckIns returns the stored check-ins of a habit ordered by day.
func (db *DB) RawCheckIns(ctx context.Context, userID, habitID string) ([]models.RawCheckRecord, error) {
	query := `
		SELECT habit_id, user_id, date_key, completed_at, timestamp,
			   is_completed, status, progress_value
		FROM checkins
		WHERE user_id = ? AND habit_id = ?
		ORDER BY date_key
	`

	rows, err := db.QueryContext(ctx, query, userID, habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query check-ins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []models.RawCheckRecord
	for rows.Next() {
		var r models.RawCheckRecord
		var completedAt, timestamp, status sql.NullString
		var isCompleted sql.NullInt64
		var progress sql.NullFloat64

		if err := rows.Scan(
			&r.HabitID,
			&r.UserID,
			&r.DateKey,
			&completedAt,
			&timestamp,
			&isCompleted,
			&status,
			&progress,
		); err != nil {
			logger.Warn("Skipping unreadable check-in", "habit", habitID, "error", err)
			continue
		}

		r.CompletedAt = parseNullTime(completedAt)
		r.Timestamp = parseNullTime(timestamp)
		if isCompleted.Valid {
			done := isCompleted.Int64 != 0
			r.IsCompleted = &done
		}
		if status.Valid {
			s := status.String
			r.Status = &s
		}
		if progress.Valid {
			p := progress.Float64
			r.ProgressValue = &p
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CheckIns returns the resolved check-ins of a habit.
func (db *DB) CheckIns(ctx context.Context, userID, habitID string) ([]models.CheckRecord, error) {
	raw, err := db.RawCheckIns(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	return models.ResolveAll(raw), nil
}

// Helper functions

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(sqlTimeLayout), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	if t.IsZero() {
		return nil
	}
	return &t
}

func parseTime(s string) time.Time {
	for _, layout := range []string{sqlTimeLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
