package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/habitlens/internal/cache"
	"github.com/j-veylop/habitlens/internal/config"
	"github.com/j-veylop/habitlens/internal/db"
	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/services"
	"github.com/j-veylop/habitlens/internal/services/connectivity"
)

// newTestManager returns a manager over a fresh database holding one habit
// "h1" for user "u1" with a completed check-in on each of the last 5 days.
func newTestManager(t *testing.T) *services.Manager {
	t.Helper()
	tmpDir := t.TempDir()

	database, err := db.New(filepath.Join(tmpDir, "records.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	ctx := context.Background()
	now := time.Now()
	if err := database.UpsertHabit(ctx, models.Habit{
		ID: "h1", UserID: "u1", Name: "Read", StartDate: now.AddDate(0, 0, -9),
	}); err != nil {
		t.Fatal(err)
	}
	done := true
	for i := range 5 {
		if err := database.UpsertCheckIn(ctx, models.RawCheckRecord{
			HabitID: "h1", UserID: "u1", DateKey: models.DateKeyOf(now.AddDate(0, 0, -i)), IsCompleted: &done,
		}); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &config.Config{
		DatabasePath:   filepath.Join(tmpDir, "unused.db"),
		UserID:         "u1",
		RecordsSource:  config.SourceSQLite,
		CacheBackend:   config.BackendMemory,
		RetryAttempts:  1,
		RetryBaseDelay: time.Millisecond,
		EngineWorkers:  1,
		MinDataPoints:  1,
	}
	mgr, err := services.NewManager(ctx, cfg,
		services.WithSource(database),
		services.WithStorage(cache.NewMemoryStorage()),
		services.WithConnectivity(connectivity.NewStatic(true)),
	)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func TestCommands_Tick(t *testing.T) {
	cmds := NewCommands(nil)
	if cmds.Tick(time.Millisecond) == nil {
		t.Error("Tick returned nil")
	}
	if cmds.DefaultTick() == nil {
		t.Error("DefaultTick returned nil")
	}
}

func TestCommands_Notifications(t *testing.T) {
	cmds := NewCommands(nil)

	tests := []struct {
		name string
		fn   func(string) tea.Cmd
		want NotificationType
	}{
		{"Success", cmds.NotifySuccess, NotificationSuccess},
		{"Error", cmds.NotifyError, NotificationError},
		{"Warning", cmds.NotifyWarning, NotificationWarning},
		{"Info", cmds.NotifyInfo, NotificationInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.fn("msg")()

			addMsg, ok := msg.(AddNotificationMsg)
			if !ok {
				t.Fatalf("Expected AddNotificationMsg, got %T", msg)
			}
			if addMsg.Type != tt.want {
				t.Errorf("Type = %v, want %v", addMsg.Type, tt.want)
			}
			if addMsg.Message != "msg" {
				t.Errorf("Message = %q, want msg", addMsg.Message)
			}
		})
	}
}

func TestCommands_ClearNotification(t *testing.T) {
	cmds := NewCommands(nil)
	if cmds.ClearNotification("id", time.Millisecond) == nil {
		t.Error("ClearNotification returned nil")
	}
}

func TestCommands_WithoutManager(t *testing.T) {
	cmds := NewCommands(nil)
	if cmds.LoadOverview(false) != nil || cmds.LoadAnalytics("h1", false) != nil ||
		cmds.LoadCacheStats() != nil || cmds.ClearCache() != nil || cmds.CleanupCache() != nil {
		t.Error("service commands should be nil without a manager")
	}
}

func TestCommands_LoadAndClear(t *testing.T) {
	cmds := NewCommands(newTestManager(t))
	if cmds.UserID() != "u1" {
		t.Fatalf("UserID = %q, want u1", cmds.UserID())
	}

	loaded, ok := cmds.LoadOverview(false)().(HabitsLoadedMsg)
	if !ok {
		t.Fatal("LoadOverview should produce HabitsLoadedMsg")
	}
	if loaded.Error != nil || len(loaded.Habits) != 1 {
		t.Fatalf("overview = %+v", loaded)
	}
	h := loaded.Habits[0]
	if h.Err != nil || h.Analytics.Result.CurrentStreak != 5 {
		t.Errorf("unexpected analytics: %+v", h)
	}

	single := cmds.LoadAnalytics("h1", false)().(AnalyticsLoadedMsg)
	if single.Error != nil || !single.Analytics.FromCache {
		t.Errorf("second load should come from cache: %+v", single)
	}

	stats := cmds.LoadCacheStats()().(CacheStatsMsg)
	if stats.Error != nil || stats.Stats.TotalEntries != 1 {
		t.Errorf("cache stats = %+v", stats)
	}

	if got := cmds.CleanupCache()().(CacheClearedMsg); got.Removed != 0 || !got.Expired {
		t.Errorf("cleanup = %+v", got)
	}
	if got := cmds.ClearCache()().(CacheClearedMsg); got.Removed != 1 {
		t.Errorf("clear removed %d, want 1", got.Removed)
	}
}
