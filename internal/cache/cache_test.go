package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/j-veylop/habitlens/internal/db"
	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/services/connectivity"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, storage Storage) (*Cache, *fakeClock, *connectivity.Static) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)}
	source := connectivity.NewStatic(true)
	c := New(storage, source, WithClock(clock.Now))
	t.Cleanup(c.Cleanup)
	return c, clock, source
}

func result(userID, habitID string, streak int) *models.AnalyticsResult {
	return &models.AnalyticsResult{UserID: userID, HabitID: habitID, CurrentStreak: streak, LongestStreak: streak}
}

func TestKey(t *testing.T) {
	if got := Key("u1", "h1"); got != "analytics_cache_u1_h1" {
		t.Errorf("Key() = %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	c, clock, _ := newTestCache(t, NewMemoryStorage())

	c.CacheAnalytics("u1", "h1", result("u1", "h1", 4))

	got, ok := c.GetCachedAnalytics("u1", "h1")
	if !ok || got.CurrentStreak != 4 {
		t.Fatalf("expected cached result, got %+v ok=%v", got, ok)
	}

	clock.Advance(90 * time.Second)
	age, ok := c.GetCacheAge("u1", "h1")
	if !ok || age != 90*time.Second {
		t.Errorf("GetCacheAge = %v, %v; want 90s", age, ok)
	}
	if !c.IsCached("u1", "h1") {
		t.Error("entry should still be fresh")
	}
}

func TestEntryFormat(t *testing.T) {
	storage := NewMemoryStorage()
	c, clock, _ := newTestCache(t, storage)
	c.CacheAnalytics("u1", "h1", result("u1", "h1", 1))

	raw, ok, _ := storage.Get("analytics_cache_u1_h1")
	if !ok {
		t.Fatal("expected raw entry")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		t.Fatalf("entry is not JSON: %v", err)
	}
	for _, name := range []string{"data", "cachedAt", "expiresAt"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("entry missing %q", name)
		}
	}

	var entry Entry
	_ = json.Unmarshal([]byte(raw), &entry)
	if entry.CachedAt != clock.Now().UnixMilli() || entry.ExpiresAt-entry.CachedAt != 300000 {
		t.Errorf("unexpected timestamps: %+v", entry)
	}
}

func TestExpiryEvictsOnRead(t *testing.T) {
	storage := NewMemoryStorage()
	c, clock, _ := newTestCache(t, storage)

	c.CacheAnalytics("u1", "h1", result("u1", "h1", 2))
	clock.Advance(TTL + time.Millisecond)

	if _, ok := c.GetCachedAnalytics("u1", "h1"); ok {
		t.Error("expired entry should be absent")
	}
	if _, ok, _ := storage.Get(Key("u1", "h1")); ok {
		t.Error("expired entry should be removed from storage")
	}
}

func TestExpiryBoundary(t *testing.T) {
	c, clock, _ := newTestCache(t, NewMemoryStorage())
	c.CacheAnalytics("u1", "h1", result("u1", "h1", 2))

	clock.Advance(TTL - time.Millisecond)
	if !c.IsCached("u1", "h1") {
		t.Error("entry should be fresh just before expiry")
	}
	clock.Advance(time.Millisecond)
	if c.IsCached("u1", "h1") {
		t.Error("entry should be expired exactly at expiresAt")
	}
}

func TestCorruptEntryEvicted(t *testing.T) {
	storage := NewMemoryStorage()
	c, _, _ := newTestCache(t, storage)

	for _, raw := range []string{"{not json", `{"cachedAt":1}`, `{"data":null,"expiresAt":99999999999999}`} {
		_ = storage.Set(Key("u1", "h1"), raw)
		if _, ok := c.GetCachedAnalytics("u1", "h1"); ok {
			t.Errorf("corrupt entry %q should read as absent", raw)
		}
		if _, ok, _ := storage.Get(Key("u1", "h1")); ok {
			t.Errorf("corrupt entry %q should be deleted", raw)
		}
	}
}

type failingStorage struct {
	*MemoryStorage
	failWrites bool
	failReads  bool
}

func (f *failingStorage) Set(key, value string) error {
	if f.failWrites {
		return errors.New("quota exceeded")
	}
	return f.MemoryStorage.Set(key, value)
}

func (f *failingStorage) Get(key string) (string, bool, error) {
	if f.failReads {
		return "", false, errors.New("storage unavailable")
	}
	return f.MemoryStorage.Get(key)
}

func TestStorageFailuresAreSwallowed(t *testing.T) {
	storage := &failingStorage{MemoryStorage: NewMemoryStorage(), failWrites: true}
	c, _, _ := newTestCache(t, storage)

	c.CacheAnalytics("u1", "h1", result("u1", "h1", 1))
	if c.IsCached("u1", "h1") {
		t.Error("failed write should leave nothing cached")
	}

	storage.failWrites = false
	c.CacheAnalytics("u1", "h1", result("u1", "h1", 1))
	storage.failReads = true
	if _, ok := c.GetCachedAnalytics("u1", "h1"); ok {
		t.Error("read failure should degrade to a miss")
	}
}

func TestRemoveAndClearUser(t *testing.T) {
	c, _, _ := newTestCache(t, NewMemoryStorage())

	c.CacheAnalytics("u1", "h1", result("u1", "h1", 1))
	c.CacheAnalytics("u1", "h2", result("u1", "h2", 1))
	c.CacheAnalytics("u1_x", "h3", result("u1_x", "h3", 1))
	c.CacheAnalytics("u2", "h1", result("u2", "h1", 1))

	c.RemoveCachedAnalytics("u1", "h2")
	if c.IsCached("u1", "h2") {
		t.Error("removed entry should be gone")
	}

	if removed := c.ClearUserCache("u1"); removed != 1 {
		t.Errorf("ClearUserCache removed %d, want 1", removed)
	}
	if c.IsCached("u1", "h1") {
		t.Error("u1 entries should be cleared")
	}
	if !c.IsCached("u1_x", "h3") {
		t.Error("user sharing the key prefix should be untouched")
	}
	if !c.IsCached("u2", "h1") {
		t.Error("other users should be untouched")
	}
}

func TestStatsAndCleanup(t *testing.T) {
	storage := NewMemoryStorage()
	c, clock, _ := newTestCache(t, storage)

	c.CacheAnalytics("u1", "h1", result("u1", "h1", 1))
	clock.Advance(4 * time.Minute)
	c.CacheAnalytics("u1", "h2", result("u1", "h2", 1))
	clock.Advance(2 * time.Minute)
	_ = storage.Set("unrelated", "x")

	stats, err := c.GetCacheStats()
	if err != nil {
		t.Fatalf("GetCacheStats failed: %v", err)
	}
	if stats.TotalEntries != 2 || stats.ExpiredEntries != 1 {
		t.Errorf("stats = %+v, want 2 total, 1 expired", stats)
	}
	if stats.TotalSizeBytes <= 0 {
		t.Error("expected a positive size")
	}

	if removed := c.CleanupExpiredEntries(); removed != 1 {
		t.Errorf("CleanupExpiredEntries removed %d, want 1", removed)
	}
	if removed := c.CleanupExpiredEntries(); removed != 0 {
		t.Errorf("second cleanup removed %d, want 0", removed)
	}
	stats, _ = c.GetCacheStats()
	if stats.TotalEntries != 1 || stats.ExpiredEntries != 0 {
		t.Errorf("stats after cleanup = %+v", stats)
	}
}

func TestOnlineStatus(t *testing.T) {
	source := connectivity.NewStatic(false)
	c := New(NewMemoryStorage(), source)

	if c.IsOnline() {
		t.Error("initial state should come from the source")
	}

	var mu sync.Mutex
	var seen []bool
	unsubscribe := c.OnOnlineStatusChange(func(online bool) {
		mu.Lock()
		seen = append(seen, online)
		mu.Unlock()
	})

	source.SetOnline(true)
	if !c.IsOnline() {
		t.Error("cache should follow the source")
	}

	unsubscribe()
	source.SetOnline(false)

	mu.Lock()
	if len(seen) != 1 || !seen[0] {
		t.Errorf("unexpected notifications: %v", seen)
	}
	mu.Unlock()

	c.OnOnlineStatusChange(func(bool) { t.Error("listener called after Cleanup") })
	c.Cleanup()
	c.Cleanup()
	if source.Subscribers() != 0 {
		t.Errorf("Cleanup should detach from the source, %d subscribers left", source.Subscribers())
	}
	source.SetOnline(true)
	if c.IsOnline() {
		t.Error("detached cache should stop following the source")
	}
}

func TestSQLiteStorage(t *testing.T) {
	database, err := db.New(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	c, clock, _ := newTestCache(t, NewSQLiteStorage(database))
	c.CacheAnalytics("u1", "h1", result("u1", "h1", 9))

	got, ok := c.GetCachedAnalytics("u1", "h1")
	if !ok || got.CurrentStreak != 9 {
		t.Fatalf("expected sqlite round trip, got %+v", got)
	}

	clock.Advance(TTL)
	if removed := c.CleanupExpiredEntries(); removed != 1 {
		t.Errorf("cleanup removed %d, want 1", removed)
	}
}

func TestRedisStorage(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	storage, err := NewRedisStorage(url)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer storage.Close()

	c, _, _ := newTestCache(t, storage)
	userID := "redis-test-" + time.Now().Format("150405.000")
	c.CacheAnalytics(userID, "h1", result(userID, "h1", 3))
	defer c.ClearUserCache(userID)

	if got, ok := c.GetCachedAnalytics(userID, "h1"); !ok || got.CurrentStreak != 3 {
		t.Errorf("expected redis round trip, got %+v", got)
	}
}

func TestEscapeGlob(t *testing.T) {
	if got := escapeGlob("analytics_cache_a*b?_"); got != `analytics_cache_a\*b\?_` {
		t.Errorf("escapeGlob = %q", got)
	}
}
