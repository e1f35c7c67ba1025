package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/j-veylop/habitlens/internal/cache"
	"github.com/j-veylop/habitlens/internal/logger"
	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/retry"
	"github.com/j-veylop/habitlens/internal/services/connectivity"
	"github.com/j-veylop/habitlens/internal/services/records"
)

const (
	// overviewConcurrency bounds how many habits are analysed at once.
	overviewConcurrency = 4
	// computeTimeout bounds one shared analytics computation, retries included.
	computeTimeout = 2 * time.Minute
)

// Analytics is a result together with where it came from.
type Analytics struct {
	Result    *models.AnalyticsResult
	FromCache bool
	// Stale marks a remembered result served while offline.
	Stale bool
	Age   time.Duration
}

// HabitAnalytics pairs a habit with its analytics or the error that
// prevented them.
type HabitAnalytics struct {
	Habit     models.Habit
	Analytics *Analytics
	Err       *retry.Error
}

// ConnectivityStatus describes the current network state.
type ConnectivityStatus struct {
	Online  bool
	Quality connectivity.Quality
	Latency time.Duration
	Probing bool
}

// ListHabits returns the user's habits.
func (m *Manager) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	habits, err := m.source.ListHabits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	return habits, nil
}

// GetAnalytics returns analytics for one habit. A fresh cache entry is used
// unless force is set. Offline, the last known result is served as stale; if
// there is none the call fails with a retryable network error without
// touching the record source. Concurrent calls for the same habit share one
// computation, which keeps running if the caller that started it goes away.
func (m *Manager) GetAnalytics(ctx context.Context, userID, habitID string, force bool) (*Analytics, error) {
	if !force {
		if result, ok := m.cache.GetCachedAnalytics(userID, habitID); ok {
			age, _ := m.cache.GetCacheAge(userID, habitID)
			return &Analytics{Result: result, FromCache: true, Age: age}, nil
		}
	}

	if !m.cache.IsOnline() {
		if result, ok := m.insights.LastKnown(userID, habitID); ok {
			return &Analytics{Result: result, Stale: true, Age: m.now().Sub(result.CalculatedAt)}, nil
		}
		err := retry.New(retry.KindNetwork, retry.ErrOffline, true)
		err.Operation = "analytics"
		err.FailedAt = m.now()
		return nil, err
	}

	ch := m.flights.DoChan(cache.Key(userID, habitID), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()
		return m.compute(fctx, userID, habitID)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		m.broadcast(ErrorEvent{Service: "analytics", Error: res.Err})
		return nil, res.Err
	}

	a := &Analytics{Result: res.Val.(*models.AnalyticsResult)}
	m.broadcast(AnalyticsUpdatedEvent{HabitID: habitID, Analytics: a})
	return a, nil
}

// compute loads the habit and its records, calculates, caches and remembers
// the result.
func (m *Manager) compute(ctx context.Context, userID, habitID string) (*models.AnalyticsResult, error) {
	policy := m.policy
	timeout := time.Duration(0)
	if m.monitor != nil && m.cfg.ConnectivityProbeURL != "" {
		rec := m.monitor.Recommend()
		policy.MaxAttempts = min(policy.MaxAttempts, rec.MaxAttempts)
		timeout = rec.Timeout
	}

	var habit models.Habit
	result, err := retry.Do(ctx, "analytics", policy, func(ctx context.Context) (*models.AnalyticsResult, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		h, err := m.source.GetHabit(ctx, userID, habitID)
		if err != nil {
			return nil, err
		}
		checkIns, err := m.source.CheckIns(ctx, userID, habitID)
		if err != nil {
			return nil, err
		}
		habit = *h
		return m.insights.Compute(ctx, habit, checkIns)
	})
	if err != nil {
		return nil, err
	}

	m.cache.CacheAnalytics(userID, habitID, result)
	prev := m.insights.Remember(result)
	m.checkNotifications(habit, prev, result)

	logger.Debug("Analytics computed",
		"user", userID, "habit", habitID, "streak", result.CurrentStreak, "rate", result.CompletionRate)
	return result, nil
}

// Overview returns analytics for every habit of the user. Per-habit
// failures are reported in the entries; only listing the habits can fail
// the whole call.
func (m *Manager) Overview(ctx context.Context, userID string, force bool) ([]HabitAnalytics, error) {
	habits, err := m.ListHabits(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]HabitAnalytics, len(habits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(overviewConcurrency)
	for i, h := range habits {
		out[i].Habit = h
		g.Go(func() error {
			a, err := m.GetAnalytics(gctx, userID, h.ID, force)
			if err != nil {
				out[i].Err = retry.Classify(err)
				return nil
			}
			out[i].Analytics = a
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// InvalidateHabit drops the cached analytics of one habit.
func (m *Manager) InvalidateHabit(userID, habitID string) {
	m.cache.RemoveCachedAnalytics(userID, habitID)
}

// ClearCache drops every cached and remembered result of userID.
func (m *Manager) ClearCache(userID string) int {
	m.insights.Forget(userID)
	return m.cache.ClearUserCache(userID)
}

// CleanupCache removes expired cache entries.
func (m *Manager) CleanupCache() int {
	return m.cache.CleanupExpiredEntries()
}

// CacheStats returns cache diagnostics.
func (m *Manager) CacheStats() (cache.Stats, error) {
	return m.cache.GetCacheStats()
}

// Connectivity returns the current network state.
func (m *Manager) Connectivity() ConnectivityStatus {
	status := ConnectivityStatus{Online: m.cache.IsOnline(), Quality: m.quality()}
	if m.monitor != nil {
		_, status.Latency = m.monitor.Quality()
		status.Probing = m.cfg.ConnectivityProbeURL != ""
	}
	return status
}

// ErrReadOnlySource is returned by Import when the record source cannot be
// written to.
var ErrReadOnlySource = errors.New("record source is read-only")

// Import writes an export file into the record source and invalidates the
// cached analytics of every imported user.
func (m *Manager) Import(ctx context.Context, path string) (int, error) {
	w, ok := m.source.(records.Writer)
	if !ok {
		return 0, fmt.Errorf("cannot import into %s source: %w", m.cfg.RecordsSource, ErrReadOnlySource)
	}

	f, err := records.LoadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	n, err := records.Import(ctx, w, f)
	if err != nil {
		return n, fmt.Errorf("failed to import records: %w", err)
	}

	users := make(map[string]struct{})
	for _, h := range f.Habits {
		users[h.UserID] = struct{}{}
	}
	for _, r := range f.CheckIns {
		users[r.UserID] = struct{}{}
	}
	ids := make([]string, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	m.invalidateUsers(ids)

	logger.Info("Records imported", "path", path, "checkins", n, "users", len(ids))
	return n, nil
}
