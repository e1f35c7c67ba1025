// Package insights turns check-in history into an analytics result by fanning
// the distribution work out to the engine.
package insights

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/habitlens/internal/analytics"
	"github.com/j-veylop/habitlens/internal/engine"
	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/retry"
)

// Milestones are the streak lengths worth a notification.
var Milestones = []int{7, 30, 100, 365}

type Service struct {
	mu            sync.RWMutex
	engine        *engine.Engine
	minDataPoints int
	now           func() time.Time

	lastKnown map[string]*models.AnalyticsResult
}

func New(eng *engine.Engine, minDataPoints int) *Service {
	if minDataPoints <= 0 {
		minDataPoints = retry.DefaultMinDataPoints
	}
	return &Service{
		engine:        eng,
		minDataPoints: minDataPoints,
		now:           time.Now,
		lastKnown:     make(map[string]*models.AnalyticsResult),
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// MinDataPoints returns the configured minimum number of check-ins.
func (s *Service) MinDataPoints() int {
	return s.minDataPoints
}

// Compute builds the full analytics result for habit. Streaks and the
// overall rate are computed here; weekday, hour-of-day and the four trend
// windows are requested from the engine concurrently.
func (s *Service) Compute(ctx context.Context, habit models.Habit, records []models.CheckRecord,
) (*models.AnalyticsResult, error) {
	if len(records) < s.minDataPoints {
		return nil, &retry.InsufficientDataError{Required: s.minDataPoints, Actual: len(records)}
	}

	now := s.now()
	loc := s.engine.Location()
	today := models.DateKeyOf(now.In(loc))
	summary := analytics.Summarize(habit, records, today, loc)

	var (
		dow    models.DayOfWeekStats
		tod    models.TimeOfDayDistribution
		trends = make([]models.TrendSummary, len(models.TrendPeriods))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dow, err = s.engine.DayOfWeekStats(gctx, records)
		return err
	})
	g.Go(func() error {
		var err error
		tod, err = s.engine.TimeDistribution(gctx, records)
		return err
	})
	for i, period := range models.TrendPeriods {
		g.Go(func() error {
			t, err := s.engine.Trend(gctx, records, period, today)
			if err != nil {
				return err
			}
			trends[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to compute analytics for %s: %w", habit.ID, err)
	}

	var set models.Trends
	for _, t := range trends {
		set.Set(t)
	}

	return analytics.Assemble(habit, summary, set, dow, tod, now), nil
}

func lastKnownKey(userID, habitID string) string {
	return userID + "/" + habitID
}

// Remember stores result as the most recent one for its habit and returns
// the result it replaced, if any.
func (s *Service) Remember(result *models.AnalyticsResult) *models.AnalyticsResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := lastKnownKey(result.UserID, result.HabitID)
	prev := s.lastKnown[key]
	s.lastKnown[key] = result
	return prev
}

// LastKnown returns the most recent result computed for a habit, regardless
// of age.
func (s *Service) LastKnown(userID, habitID string) (*models.AnalyticsResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.lastKnown[lastKnownKey(userID, habitID)]
	return r, ok
}

// Forget drops every remembered result of userID.
func (s *Service) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, r := range s.lastKnown {
		if r.UserID == userID {
			delete(s.lastKnown, key)
		}
	}
}

// CrossedMilestone returns the highest milestone reached by going from
// prev to cur days.
func CrossedMilestone(prev, cur int) (int, bool) {
	hit := 0
	for _, m := range Milestones {
		if prev < m && cur >= m {
			hit = m
		}
	}
	return hit, hit > 0
}

// TrendTurnedDown reports whether the four-week trend went down since prev.
func TrendTurnedDown(prev, cur *models.AnalyticsResult) bool {
	if prev == nil || cur == nil {
		return false
	}
	return cur.Trends.FourWeeks.Direction == models.DirectionDown &&
		prev.Trends.FourWeeks.Direction != models.DirectionDown
}

// DescribeTrend renders a one-line comparison with the previous window.
func DescribeTrend(t models.TrendSummary) string {
	switch {
	case t.Period == "":
		return "No data yet"
	case t.PreviousRate == 0 && t.CompletionRate == 0:
		return "No check-ins in either window"
	case t.Direction == models.DirectionStable:
		return fmt.Sprintf("Steady versus the previous %s", t.Period)
	case t.PercentageChange > 0:
		return fmt.Sprintf("%.0f%% higher than the previous %s", t.PercentageChange, t.Period)
	}
	return fmt.Sprintf("%.0f%% lower than the previous %s", math.Abs(t.PercentageChange), t.Period)
}
