// Package cache stores computed analytics with a fixed time-to-live so they
// stay available across restarts and connectivity loss.
package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/j-veylop/habitlens/internal/logger"
	"github.com/j-veylop/habitlens/internal/metrics"
	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/services/connectivity"
)

// TTL is how long a cached result stays fresh.
const TTL = 5 * time.Minute

// KeyPrefix starts every analytics cache key.
const KeyPrefix = "analytics_cache_"

// Key returns the storage key for a (user, habit) pair.
func Key(userID, habitID string) string {
	return KeyPrefix + userID + "_" + habitID
}

func userPrefix(userID string) string {
	return KeyPrefix + userID + "_"
}

// Entry is the stored envelope. Timestamps are epoch milliseconds.
type Entry struct {
	Data      *models.AnalyticsResult `json:"data"`
	CachedAt  int64                   `json:"cachedAt"`
	ExpiresAt int64                   `json:"expiresAt"`
}

// Stats summarizes the cache contents.
type Stats struct {
	TotalEntries   int
	ExpiredEntries int
	TotalSizeBytes int
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics records hits, misses and evictions.
func WithMetrics(m *metrics.Exporter) Option {
	return func(c *Cache) { c.metrics = m }
}

// Cache is the analytics cache. Storage failures never surface to callers:
// reads degrade to misses and writes are dropped.
type Cache struct {
	storage Storage
	now     func() time.Time
	metrics *metrics.Exporter

	online atomic.Bool

	mu          sync.Mutex
	closed      bool
	nextID      int
	listeners   map[int]func(bool)
	unsubscribe func()
}

// New creates a cache on storage and starts following source.
func New(storage Storage, source connectivity.Source, opts ...Option) *Cache {
	c := &Cache{
		storage:   storage,
		now:       time.Now,
		listeners: make(map[int]func(bool)),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.online.Store(true)
	if source != nil {
		c.online.Store(source.Online())
		c.unsubscribe = source.Subscribe(c.setOnline)
	}
	c.metrics.SetOnline(c.online.Load())
	return c
}

func (c *Cache) nowMillis() int64 {
	return c.now().UnixMilli()
}

// CacheAnalytics stores data for (userID, habitID) with a fresh TTL.
func (c *Cache) CacheAnalytics(userID, habitID string, data *models.AnalyticsResult) {
	now := c.nowMillis()
	entry := Entry{Data: data, CachedAt: now, ExpiresAt: now + TTL.Milliseconds()}

	raw, err := json.Marshal(entry)
	if err != nil {
		c.metrics.CacheWriteFailure()
		logger.Warn("Failed to encode cache entry", "user", userID, "habit", habitID, "error", err)
		return
	}
	if err := c.storage.Set(Key(userID, habitID), string(raw)); err != nil {
		c.metrics.CacheWriteFailure()
		logger.Warn("Failed to write cache entry", "user", userID, "habit", habitID, "error", err)
	}
}

// lookup returns a fresh entry, evicting expired or corrupt ones on the way.
func (c *Cache) lookup(userID, habitID string) (*Entry, bool) {
	key := Key(userID, habitID)
	raw, ok, err := c.storage.Get(key)
	if err != nil {
		logger.Warn("Failed to read cache entry", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	entry, ok := decode(raw)
	if !ok {
		c.evict(key, "corrupt")
		return nil, false
	}
	if c.nowMillis() >= entry.ExpiresAt {
		c.evict(key, "expired")
		return nil, false
	}
	return entry, true
}

func decode(raw string) (*Entry, bool) {
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false
	}
	if entry.Data == nil || entry.ExpiresAt == 0 {
		return nil, false
	}
	return &entry, true
}

func (c *Cache) evict(key, reason string) {
	if err := c.storage.Delete(key); err != nil {
		logger.Warn("Failed to evict cache entry", "key", key, "reason", reason, "error", err)
		return
	}
	c.metrics.CacheEviction(reason)
	logger.Debug("Evicted cache entry", "key", key, "reason", reason)
}

// GetCachedAnalytics returns the fresh result for (userID, habitID), or
// false when there is none.
func (c *Cache) GetCachedAnalytics(userID, habitID string) (*models.AnalyticsResult, bool) {
	entry, ok := c.lookup(userID, habitID)
	if !ok {
		c.metrics.CacheMiss()
		return nil, false
	}
	c.metrics.CacheHit()
	return entry.Data, true
}

// IsCached reports whether a fresh entry exists.
func (c *Cache) IsCached(userID, habitID string) bool {
	_, ok := c.lookup(userID, habitID)
	return ok
}

// GetCacheAge returns how long ago the fresh entry was stored.
func (c *Cache) GetCacheAge(userID, habitID string) (time.Duration, bool) {
	entry, ok := c.lookup(userID, habitID)
	if !ok {
		return 0, false
	}
	return time.Duration(c.nowMillis()-entry.CachedAt) * time.Millisecond, true
}

// RemoveCachedAnalytics drops the entry for (userID, habitID).
func (c *Cache) RemoveCachedAnalytics(userID, habitID string) {
	if err := c.storage.Delete(Key(userID, habitID)); err != nil {
		logger.Warn("Failed to remove cache entry", "user", userID, "habit", habitID, "error", err)
	}
}

// ClearUserCache drops every entry belonging to userID. Keys of other users
// that happen to share the prefix are kept when their payload says so.
func (c *Cache) ClearUserCache(userID string) int {
	keys, err := c.storage.Keys(userPrefix(userID))
	if err != nil {
		logger.Warn("Failed to list cache entries", "user", userID, "error", err)
		return 0
	}

	removed := 0
	for _, key := range keys {
		if raw, ok, err := c.storage.Get(key); err == nil && ok {
			if entry, ok := decode(raw); ok && entry.Data.UserID != "" && entry.Data.UserID != userID {
				continue
			}
		}
		if err := c.storage.Delete(key); err != nil {
			logger.Warn("Failed to remove cache entry", "key", key, "error", err)
			continue
		}
		removed++
	}
	return removed
}

// CleanupExpiredEntries removes expired and corrupt entries and returns how
// many were removed.
func (c *Cache) CleanupExpiredEntries() int {
	keys, err := c.storage.Keys(KeyPrefix)
	if err != nil {
		logger.Warn("Failed to list cache entries", "error", err)
		return 0
	}

	now := c.nowMillis()
	removed := 0
	for _, key := range keys {
		raw, ok, err := c.storage.Get(key)
		if err != nil || !ok {
			continue
		}
		entry, valid := decode(raw)
		if valid && now < entry.ExpiresAt {
			continue
		}
		if err := c.storage.Delete(key); err != nil {
			logger.Warn("Failed to remove cache entry", "key", key, "error", err)
			continue
		}
		c.metrics.CacheEviction("cleanup")
		removed++
	}
	return removed
}

// GetCacheStats counts entries, expired entries and stored bytes.
func (c *Cache) GetCacheStats() (Stats, error) {
	keys, err := c.storage.Keys(KeyPrefix)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to list cache entries: %w", err)
	}

	now := c.nowMillis()
	var stats Stats
	for _, key := range keys {
		raw, ok, err := c.storage.Get(key)
		if err != nil || !ok {
			continue
		}
		stats.TotalEntries++
		stats.TotalSizeBytes += len(raw)
		if entry, valid := decode(raw); valid && now >= entry.ExpiresAt {
			stats.ExpiredEntries++
		}
	}
	return stats, nil
}

// IsOnline reports the last known connectivity state.
func (c *Cache) IsOnline() bool {
	return c.online.Load()
}

// OnOnlineStatusChange registers fn for connectivity transitions.
func (c *Cache) OnOnlineStatusChange(fn func(online bool)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Cache) setOnline(online bool) {
	c.online.Store(online)
	c.metrics.SetOnline(online)

	c.mu.Lock()
	fns := make([]func(bool), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}

// Cleanup detaches from the connectivity source and drops every listener.
// It is safe to call more than once.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	clear(c.listeners)
}
