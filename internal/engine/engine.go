package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/habitlens/internal/logger"
	"github.com/j-veylop/habitlens/internal/metrics"
	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/retry"
)

// DefaultWorkers is the worker pool size used when none is configured.
const DefaultWorkers = 2

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("engine closed")

// RemoteError is an ERROR reply from a worker. These are caller bugs such as
// an unknown operation or trend period and are never retried.
type RemoteError struct {
	Op      Op
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Options configures an Engine.
type Options struct {
	Workers  int
	Location *time.Location
	Metrics  *metrics.Exporter
}

// Engine owns the worker goroutines and routes replies back to callers by
// request ID. Replies for callers that stopped waiting are dropped.
type Engine struct {
	requests chan []byte
	replies  chan []byte
	done     chan struct{}

	loc     *time.Location
	metrics *metrics.Exporter

	mu      sync.Mutex
	pending map[string]chan Response

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New starts the workers and the reply dispatcher.
func New(opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	e := &Engine{
		requests: make(chan []byte, opts.Workers*4),
		replies:  make(chan []byte, opts.Workers*4),
		done:     make(chan struct{}),
		loc:      opts.Location,
		metrics:  opts.Metrics,
		pending:  make(map[string]chan Response),
	}

	for range opts.Workers {
		e.wg.Add(1)
		go e.worker()
	}
	e.wg.Add(1)
	go e.dispatchReplies()

	return e
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case raw := <-e.requests:
			reply := Process(raw)
			select {
			case e.replies <- reply:
			case <-e.done:
				return
			}
		}
	}
}

func (e *Engine) dispatchReplies() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case raw := <-e.replies:
			var resp Response
			if err := json.Unmarshal(raw, &resp); err != nil {
				logger.Warn("Dropping undecodable engine reply", "error", err)
				continue
			}

			e.mu.Lock()
			ch, ok := e.pending[resp.ID]
			delete(e.pending, resp.ID)
			e.mu.Unlock()

			if !ok {
				logger.Debug("Discarding reply for abandoned request", "id", resp.ID)
				continue
			}
			ch <- resp
		}
	}
}

// Call sends one request and decodes the result into out. If ctx ends first
// the call returns and the eventual reply is discarded.
func (e *Engine) Call(ctx context.Context, op Op, payload, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", op, err)
	}

	id := uuid.NewString()
	raw, err := json.Marshal(Request{ID: id, Type: op, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	ch := make(chan Response, 1)
	e.mu.Lock()
	e.pending[id] = ch
	e.mu.Unlock()

	abandon := func() {
		e.mu.Lock()
		delete(e.pending, id)
		e.mu.Unlock()
	}

	start := time.Now()
	select {
	case e.requests <- raw:
	case <-ctx.Done():
		abandon()
		return ctx.Err()
	case <-e.done:
		abandon()
		return ErrClosed
	}

	var resp Response
	select {
	case resp = <-ch:
	case <-ctx.Done():
		abandon()
		return ctx.Err()
	case <-e.done:
		abandon()
		return ErrClosed
	}
	e.metrics.EngineRequest(string(op), string(resp.Type), time.Since(start))

	if resp.Type != StatusSuccess {
		remote := &RemoteError{Op: op, Message: resp.Error}
		return retry.New(retry.KindCalculation, remote, false)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", op, err)
	}
	return nil
}

// CompletionRate returns the completion percentage over [start, end].
func (e *Engine) CompletionRate(ctx context.Context, records []models.CheckRecord, start, end string) (float64, error) {
	var rate float64
	err := e.Call(ctx, OpCompletionRate, CompletionRatePayload{Records: records, StartDate: start, EndDate: end}, &rate)
	return rate, err
}

// DayOfWeekStats returns per-weekday completion stats.
func (e *Engine) DayOfWeekStats(ctx context.Context, records []models.CheckRecord) (models.DayOfWeekStats, error) {
	var stats models.DayOfWeekStats
	err := e.Call(ctx, OpDayOfWeekStats, DayOfWeekPayload{Records: records}, &stats)
	return stats, err
}

// TimeDistribution returns the hour-of-day histogram in the engine's location.
func (e *Engine) TimeDistribution(ctx context.Context, records []models.CheckRecord) (models.TimeOfDayDistribution, error) {
	var dist models.TimeOfDayDistribution
	err := e.Call(ctx, OpTimeDistribution, TimeDistributionPayload{Records: records, Timezone: e.loc.String()}, &dist)
	return dist, err
}

// Trend returns the trend summary of period ending on today.
func (e *Engine) Trend(ctx context.Context, records []models.CheckRecord, period models.TrendPeriod, today string,
) (models.TrendSummary, error) {
	var summary models.TrendSummary
	err := e.Call(ctx, OpTrend, TrendPayload{Records: records, Period: period, Today: today}, &summary)
	return summary, err
}

// Location returns the zone used for hour-of-day bucketing.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Close stops the workers. Pending calls return ErrClosed.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
		e.wg.Wait()
	})
	return nil
}
