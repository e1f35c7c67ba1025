package retry

import (
	"context"
	"errors"
	"time"

	"github.com/j-veylop/habitlens/internal/logger"
	"github.com/j-veylop/habitlens/internal/metrics"
)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Policy controls how many times and how fast an operation is retried.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Metrics     *metrics.Exporter

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// DefaultPolicy returns 3 attempts starting at a 1s delay.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// attemptsFor returns the attempt budget for a kind. Network failures get
// the full budget; calculation and unknown failures are retried once.
func (p Policy) attemptsFor(kind Kind) int {
	switch kind {
	case KindNetwork:
		return p.MaxAttempts
	case KindCalculation, KindUnknown:
		return min(2, p.MaxAttempts)
	default:
		return 1
	}
}

// ShouldRetry reports whether a classified error may be attempted again.
func ShouldRetry(e *Error) bool {
	if e == nil || !e.CanRetry {
		return false
	}
	return e.Kind != KindInsufficientData && e.Kind != KindPermission
}

// Do runs op until it succeeds, fails terminally, or the attempt budget is
// spent. The delay before retry n (0-based) is BaseDelay * 2^n. The returned
// error is always a *Error.
func Do[T any](ctx context.Context, name string, p Policy, op func(context.Context) (T, error)) (T, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.sleep == nil {
		p.sleep = sleepCtx
	}

	var zero T
	backoff := p.BaseDelay
	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		classified := Classify(err)
		p.Metrics.RetryAttempt(name, string(classified.Kind))

		if !ShouldRetry(classified) || attempt >= p.attemptsFor(classified.Kind) {
			final := *classified
			final.Attempts = attempt
			final.Operation = name
			final.FailedAt = p.now()
			logger.Warn("Operation failed",
				"operation", name, "kind", classified.Kind, "attempts", attempt, "error", err)
			return zero, &final
		}

		logger.Debug("Retrying operation",
			"operation", name, "attempt", attempt, "delay", backoff, "error", err)
		if ctxErr := p.sleep(ctx, backoff); ctxErr != nil {
			// The last failure keeps its kind; the context error rides along.
			final := *classified
			final.Err = errors.Join(classified.Err, ctxErr)
			final.Attempts = attempt
			final.Operation = name
			final.FailedAt = p.now()
			logger.Warn("Operation abandoned",
				"operation", name, "kind", classified.Kind, "attempts", attempt, "error", ctxErr)
			return zero, &final
		}
		backoff *= 2
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
