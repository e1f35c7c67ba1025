// Package engine runs the distribution and trend calculations on worker
// goroutines. Callers and workers exchange JSON-encoded messages only, so no
// record slice is ever shared between them.
package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/j-veylop/habitlens/internal/analytics"
	"github.com/j-veylop/habitlens/internal/models"
)

// Op is a request operation code.
type Op string

const (
	OpCompletionRate   Op = "CALCULATE_COMPLETION_RATE"
	OpDayOfWeekStats   Op = "CALCULATE_DAY_OF_WEEK_STATS"
	OpTimeDistribution Op = "CALCULATE_TIME_DISTRIBUTION"
	OpTrend            Op = "CALCULATE_TREND"
)

// Status is a reply type.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// Request is one message sent to a worker.
type Request struct {
	ID   string          `json:"id"`
	Type Op              `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Response is the single reply to a Request with the same ID.
type Response struct {
	ID     string          `json:"id"`
	Type   Status          `json:"type"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// CompletionRatePayload asks for the completion rate over [StartDate, EndDate].
type CompletionRatePayload struct {
	Records   []models.CheckRecord `json:"records"`
	StartDate string               `json:"startDate"`
	EndDate   string               `json:"endDate"`
}

// DayOfWeekPayload asks for per-weekday stats.
type DayOfWeekPayload struct {
	Records []models.CheckRecord `json:"records"`
}

// TimeDistributionPayload asks for an hour-of-day histogram in Timezone.
type TimeDistributionPayload struct {
	Records  []models.CheckRecord `json:"records"`
	Timezone string               `json:"timezone"`
}

// TrendPayload asks for the trend of Period ending on Today.
type TrendPayload struct {
	Records []models.CheckRecord `json:"records"`
	Period  models.TrendPeriod   `json:"period"`
	Today   string               `json:"today"`
}

// Process handles one encoded request and returns the encoded reply. It
// always produces exactly one reply, even for garbage input.
func Process(raw []byte) []byte {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return encode(Response{Type: StatusError, Error: fmt.Sprintf("malformed request: %v", err)})
	}
	return encode(handle(req))
}

func handle(req Request) (resp Response) {
	resp.ID = req.ID
	defer func() {
		if r := recover(); r != nil {
			resp = Response{ID: req.ID, Type: StatusError, Error: fmt.Sprintf("calculation panicked: %v", r)}
		}
	}()

	result, err := dispatch(req)
	if err != nil {
		resp.Type = StatusError
		resp.Error = err.Error()
		return resp
	}

	data, err := json.Marshal(result)
	if err != nil {
		resp.Type = StatusError
		resp.Error = fmt.Sprintf("failed to encode result: %v", err)
		return resp
	}
	resp.Type = StatusSuccess
	resp.Result = data
	return resp
}

func dispatch(req Request) (any, error) {
	switch req.Type {
	case OpCompletionRate:
		var p CompletionRatePayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
		return analytics.CompletionRateInRange(p.Records, p.StartDate, p.EndDate), nil

	case OpDayOfWeekStats:
		var p DayOfWeekPayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
		return analytics.DayOfWeek(p.Records), nil

	case OpTimeDistribution:
		var p TimeDistributionPayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
		loc, err := time.LoadLocation(p.Timezone)
		if err != nil {
			return nil, fmt.Errorf("unknown timezone %q", p.Timezone)
		}
		return analytics.TimeOfDay(p.Records, loc), nil

	case OpTrend:
		var p TrendPayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
		if !p.Period.Valid() {
			return nil, fmt.Errorf("unknown trend period %q", p.Period)
		}
		summary, ok := analytics.Trend(p.Records, p.Period, p.Today)
		if !ok {
			return nil, fmt.Errorf("invalid date %q", p.Today)
		}
		return summary, nil

	default:
		return nil, fmt.Errorf("unknown operation %q", req.Type)
	}
}

func encode(resp Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		// Only reachable with a broken Result; fall back to a bare error reply.
		data, _ = json.Marshal(Response{ID: resp.ID, Type: StatusError, Error: err.Error()})
	}
	return data
}
