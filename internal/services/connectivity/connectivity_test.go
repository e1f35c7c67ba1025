package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestStaticTransitions(t *testing.T) {
	s := NewStatic(true)

	var calls []bool
	unsubscribe := s.Subscribe(func(online bool) { calls = append(calls, online) })

	s.SetOnline(true) // no transition
	s.SetOnline(false)
	s.SetOnline(true)

	if len(calls) != 2 || calls[0] || !calls[1] {
		t.Errorf("unexpected transitions: %v", calls)
	}

	unsubscribe()
	unsubscribe()
	if s.Subscribers() != 0 {
		t.Errorf("expected no subscribers, got %d", s.Subscribers())
	}

	s.SetOnline(false)
	if len(calls) != 2 {
		t.Error("unsubscribed listener should not be called")
	}
}

func newProbeServer(t *testing.T, status *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMonitorCheck(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := newProbeServer(t, &status)

	// A long interval keeps the background poller from interfering.
	m := NewMonitor(Config{ProbeURL: srv.URL, Interval: time.Hour})
	defer func() { _ = m.Close() }()

	var transitions atomic.Int32
	m.Subscribe(func(bool) { transitions.Add(1) })

	m.Check(context.Background())
	if !m.Online() {
		t.Fatal("expected online after successful probe")
	}

	status.Store(http.StatusBadGateway)
	m.Check(context.Background())
	if m.Online() {
		t.Fatal("expected offline after 5xx probe")
	}
	if q, _ := m.Quality(); q != QualityOffline {
		t.Errorf("quality = %s, want offline", q)
	}
	if rec := m.Recommend(); rec.MaxAttempts != 1 {
		t.Errorf("offline recommendation = %+v", rec)
	}

	status.Store(http.StatusNoContent)
	m.Check(context.Background())
	if !m.Online() {
		t.Fatal("expected online after recovery")
	}
	if got := transitions.Load(); got != 2 {
		t.Errorf("transitions = %d, want 2", got)
	}
}

func TestMonitorEvents(t *testing.T) {
	m := NewMonitor(Config{ProbeURL: "http://127.0.0.1:1", Interval: time.Hour, Timeout: time.Second})
	defer func() { _ = m.Close() }()

	select {
	case ev := <-m.Events():
		if ev.Type != EventOffline || ev.Error == nil {
			t.Errorf("unexpected event: %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected an offline event from the initial probe")
	}
}

func TestMonitorWithoutProbeURL(t *testing.T) {
	m := NewMonitor(Config{})
	defer func() { _ = m.Close() }()
	if !m.Online() {
		t.Error("monitor without a probe should report online")
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestRecommendFor(t *testing.T) {
	if RecommendFor(QualitySlow).Timeout <= RecommendFor(QualityFast).Timeout {
		t.Error("slow connections should get a longer timeout")
	}
}
