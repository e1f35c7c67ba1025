package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExporterCounters(t *testing.T) {
	e := New()

	e.CacheHit()
	e.CacheHit()
	e.CacheMiss()
	e.CacheEviction("expired")
	e.CacheWriteFailure()
	e.EngineRequest("CALCULATE_TREND", "SUCCESS", 2*time.Millisecond)
	e.RetryAttempt("calculateAnalytics", "network-error")
	e.SetOnline(true)

	if got := testutil.ToFloat64(e.cacheHits); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(e.cacheMisses); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.cacheEvictions.WithLabelValues("expired")); got != 1 {
		t.Errorf("expired evictions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.engineRequests.WithLabelValues("CALCULATE_TREND", "SUCCESS")); got != 1 {
		t.Errorf("engine requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.retryAttempts.WithLabelValues("calculateAnalytics", "network-error")); got != 1 {
		t.Errorf("retry attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.online); got != 1 {
		t.Errorf("online = %v, want 1", got)
	}
}

func TestNilExporter(t *testing.T) {
	var e *Exporter
	e.CacheHit()
	e.CacheMiss()
	e.CacheEviction("corrupt")
	e.CacheWriteFailure()
	e.EngineRequest("x", "ERROR", time.Second)
	e.RetryAttempt("op", "unknown")
	e.SetOnline(false)
}

func TestExporterHandler(t *testing.T) {
	e := New()
	e.CacheHit()

	srv := httptest.NewServer(e.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "habitlens_cache_hits_total 1") {
		t.Errorf("expected cache hit counter in output:\n%s", body)
	}
}
