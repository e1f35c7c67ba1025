package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/j-veylop/habitlens/internal/models"
)

// newTestDB opens a fresh database in a temp dir. Callers close it.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "habitlens.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func TestNewReopensExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", "habitlens.db")

	first, err := New(path)
	if err != nil {
		t.Fatalf("New(%s) failed: %v", path, err)
	}
	if first.Path() != path {
		t.Errorf("Path() = %s, want %s", first.Path(), path)
	}
	seedHabit(t, first, models.Habit{ID: "h1", UserID: "u1", Name: "Read", StartDate: time.Now()})
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := New(path)
	if err != nil {
		t.Fatalf("reopening failed: %v", err)
	}
	defer second.Close()

	habits, err := second.ListHabits(context.Background(), "u1")
	if err != nil || len(habits) != 1 {
		t.Errorf("habits after reopen = %v, %v", habits, err)
	}
}

func TestSchema(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	objects := map[string]string{
		"habits":                  "table",
		"checkins":                "table",
		"kv_store":                "table",
		"idx_habits_user":         "index",
		"idx_checkins_user_habit": "index",
	}
	for name, kind := range objects {
		var got string
		err := db.QueryRowContext(context.Background(),
			"SELECT type FROM sqlite_master WHERE name = ?", name).Scan(&got)
		if err != nil || got != kind {
			t.Errorf("%s: got %q, %v; want %s", name, got, err, kind)
		}
	}
}

func TestPragmas(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Errorf("journal_mode = %s, want wal", mode)
	}

	var fk int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Error("foreign keys should be enforced")
	}
}

func TestCheckInRequiresHabit(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	err := db.UpsertCheckIn(context.Background(), models.RawCheckRecord{
		HabitID: "ghost", UserID: "u1", DateKey: "2025-01-01", IsCompleted: ptr(true),
	})
	if err == nil {
		t.Error("check-in for an unknown habit should be rejected")
	}
}

func TestVacuumAndClose(t *testing.T) {
	db := newTestDB(t)
	seedHabit(t, db, models.Habit{ID: "h1", UserID: "u1", Name: "Read", StartDate: time.Now()})

	if err := db.Vacuum(); err != nil {
		t.Errorf("Vacuum failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := db.ListHabits(context.Background(), "u1"); err == nil {
		t.Error("queries should fail once closed")
	}
}
