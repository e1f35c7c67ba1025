package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/retry"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(Options{Workers: 3, Location: time.UTC})
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func sampleRecords() []models.CheckRecord {
	var records []models.CheckRecord
	start := time.Date(2025, 1, 1, 7, 0, 0, 0, time.UTC)
	for i := range 40 {
		at := start.AddDate(0, 0, i).Add(time.Duration(i%3) * time.Hour)
		records = append(records, models.CheckRecord{
			DateKey:     models.DateKeyOf(at),
			CompletedAt: &at,
			Completed:   i%4 != 0,
		})
	}
	return records
}

func TestProcessReplies(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		status Status
	}{
		{"day of week", Request{ID: "a", Type: OpDayOfWeekStats, Data: json.RawMessage(`{"records":[]}`)}, StatusSuccess},
		{"unknown op", Request{ID: "b", Type: "CALCULATE_MOOD", Data: json.RawMessage(`{}`)}, StatusError},
		{"unknown period", Request{ID: "c", Type: OpTrend, Data: json.RawMessage(`{"period":"2W","today":"2025-01-01"}`)}, StatusError},
		{"bad payload", Request{ID: "d", Type: OpTrend, Data: json.RawMessage(`[1,2]`)}, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := json.Marshal(tt.req)
			var resp Response
			if err := json.Unmarshal(Process(raw), &resp); err != nil {
				t.Fatalf("reply is not JSON: %v", err)
			}
			if resp.ID != tt.req.ID {
				t.Errorf("reply id = %q, want %q", resp.ID, tt.req.ID)
			}
			if resp.Type != tt.status {
				t.Errorf("reply type = %s, want %s (error %q)", resp.Type, tt.status, resp.Error)
			}
		})
	}
}

func TestProcessMalformedRequest(t *testing.T) {
	var resp Response
	if err := json.Unmarshal(Process([]byte("{nope")), &resp); err != nil {
		t.Fatalf("reply is not JSON: %v", err)
	}
	if resp.Type != StatusError {
		t.Errorf("expected ERROR reply, got %s", resp.Type)
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	data, _ := json.Marshal(TrendPayload{Records: sampleRecords(), Period: models.TrendFourWeeks, Today: "2025-02-09"})
	raw, _ := json.Marshal(Request{ID: "same", Type: OpTrend, Data: data})

	first := Process(raw)
	second := Process(raw)
	if string(first) != string(second) {
		t.Errorf("identical requests produced different replies:\n%s\n%s", first, second)
	}
}

func TestEngineOperations(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	records := sampleRecords()

	rate, err := e.CompletionRate(ctx, records, "2025-01-01", "2025-01-04")
	if err != nil {
		t.Fatalf("CompletionRate failed: %v", err)
	}
	if rate != 75 {
		t.Errorf("rate = %v, want 75", rate)
	}

	dow, err := e.DayOfWeekStats(ctx, records)
	if err != nil {
		t.Fatalf("DayOfWeekStats failed: %v", err)
	}
	if len(dow.Days) != 7 || dow.BestDay == "" {
		t.Errorf("unexpected day-of-week stats: %+v", dow)
	}

	dist, err := e.TimeDistribution(ctx, records)
	if err != nil {
		t.Fatalf("TimeDistribution failed: %v", err)
	}
	total := 0
	for _, n := range dist.HourlyDistribution {
		total += n
	}
	if total != 30 {
		t.Errorf("histogram total = %d, want 30", total)
	}

	trend, err := e.Trend(ctx, records, models.TrendFourWeeks, "2025-02-09")
	if err != nil {
		t.Fatalf("Trend failed: %v", err)
	}
	if trend.Period != models.TrendFourWeeks {
		t.Errorf("trend period = %s", trend.Period)
	}
}

func TestEngineErrorReplyIsNotRetryable(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Trend(context.Background(), nil, models.TrendPeriod("2W"), "2025-01-01")
	if err == nil {
		t.Fatal("expected an error for an unknown period")
	}

	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Op != OpTrend {
		t.Errorf("expected RemoteError for %s, got %v", OpTrend, err)
	}
	classified := retry.Classify(err)
	if classified.Kind != retry.KindCalculation || retry.ShouldRetry(classified) {
		t.Errorf("engine errors should be non-retryable calculation errors, got %+v", classified)
	}
}

func TestEngineCorrelatesConcurrentCalls(t *testing.T) {
	e := newTestEngine(t)
	records := sampleRecords()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			end := fmt.Sprintf("2025-01-%02d", 1+i)
			want := 0.0
			for _, r := range records {
				if r.Completed && r.DateKey <= end {
					want++
				}
			}
			want = want / float64(i+1) * 100

			got, err := e.CompletionRate(context.Background(), records, "2025-01-01", end)
			if err != nil {
				errs <- err
				return
			}
			if got != want {
				errs <- fmt.Errorf("call %d: got %v, want %v", i, got, want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestEngineAbandonedCall(t *testing.T) {
	e := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.DayOfWeekStats(ctx, sampleRecords()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	e.mu.Lock()
	n := len(e.pending)
	e.mu.Unlock()
	if n != 0 {
		t.Errorf("abandoned call left %d pending entries", n)
	}

	// The engine keeps serving after an abandoned call.
	if _, err := e.DayOfWeekStats(context.Background(), sampleRecords()); err != nil {
		t.Errorf("follow-up call failed: %v", err)
	}
}

func TestEngineClosed(t *testing.T) {
	e := New(Options{Workers: 1})
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if _, err := e.CompletionRate(context.Background(), nil, "2025-01-01", "2025-01-02"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestEngineMatchesInProcessResult(t *testing.T) {
	e := newTestEngine(t)
	records := sampleRecords()

	got, err := e.DayOfWeekStats(context.Background(), records)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := json.Marshal(Request{ID: "x", Type: OpDayOfWeekStats, Data: mustJSON(t, DayOfWeekPayload{Records: records})})
	var resp Response
	_ = json.Unmarshal(Process(raw), &resp)
	var want models.DayOfWeekStats
	_ = json.Unmarshal(resp.Result, &want)

	if !reflect.DeepEqual(got, want) {
		t.Errorf("engine result differs from direct processing")
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
