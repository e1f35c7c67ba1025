package connectivity

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/j-veylop/habitlens/internal/logger"
)

// Quality is a coarse connection quality grade.
type Quality string

const (
	QualityFast    Quality = "fast"
	QualitySlow    Quality = "slow"
	QualityOffline Quality = "offline"
)

// EventType defines the type of connectivity event.
type EventType int

const (
	// EventOnline indicates the probe started succeeding.
	EventOnline EventType = iota
	// EventOffline indicates the probe started failing.
	EventOffline
	// EventQualityChanged indicates a change between fast and slow.
	EventQualityChanged
)

// Event represents a connectivity transition.
type Event struct {
	Type    EventType
	Quality Quality
	Latency time.Duration
	Error   error
}

// Config holds configuration for the monitor.
type Config struct {
	ProbeURL      string
	Interval      time.Duration
	Timeout       time.Duration
	SlowThreshold time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Interval:      30 * time.Second,
		Timeout:       5 * time.Second,
		SlowThreshold: 800 * time.Millisecond,
	}
}

// Recommendation tunes fetches to the current connection.
type Recommendation struct {
	Timeout     time.Duration
	MaxAttempts int
}

// Monitor probes an HTTP endpoint on an interval. It starts out online and
// corrects itself after the first probe.
type Monitor struct {
	config    Config
	client    *http.Client
	online    atomic.Bool
	listeners listeners
	eventChan chan Event
	stopChan  chan struct{}
	closeOnce sync.Once

	mu      sync.RWMutex
	quality Quality
	latency time.Duration
}

// NewMonitor creates a monitor and starts polling.
func NewMonitor(config Config) *Monitor {
	defaults := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.SlowThreshold <= 0 {
		config.SlowThreshold = defaults.SlowThreshold
	}

	m := &Monitor{
		config:    config,
		client:    &http.Client{Timeout: config.Timeout},
		eventChan: make(chan Event, 16),
		stopChan:  make(chan struct{}),
		quality:   QualityFast,
	}
	m.online.Store(true)

	go m.poll()
	return m
}

// Events returns the event channel.
func (m *Monitor) Events() <-chan Event {
	return m.eventChan
}

// Online reports the last probe result.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Subscribe registers fn for online/offline transitions.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	return m.listeners.add(fn)
}

// Quality returns the current grade and last measured latency.
func (m *Monitor) Quality() (Quality, time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.quality, m.latency
}

// Recommend returns fetch settings for the current quality.
func (m *Monitor) Recommend() Recommendation {
	q, _ := m.Quality()
	return RecommendFor(q)
}

// RecommendFor maps a quality grade onto fetch settings.
func RecommendFor(q Quality) Recommendation {
	switch q {
	case QualitySlow:
		return Recommendation{Timeout: 30 * time.Second, MaxAttempts: 4}
	case QualityOffline:
		return Recommendation{Timeout: 5 * time.Second, MaxAttempts: 1}
	default:
		return Recommendation{Timeout: 10 * time.Second, MaxAttempts: 3}
	}
}

// Check probes once and applies the result.
func (m *Monitor) Check(ctx context.Context) {
	latency, err := m.probe(ctx)
	m.apply(latency, err)
}

func (m *Monitor) probe(ctx context.Context) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.config.ProbeURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create probe request: %w", err)
	}

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return 0, fmt.Errorf("probe failed (status %d)", resp.StatusCode)
	}
	return time.Since(start), nil
}

func (m *Monitor) apply(latency time.Duration, err error) {
	quality := QualityFast
	switch {
	case err != nil:
		quality = QualityOffline
	case latency > m.config.SlowThreshold:
		quality = QualitySlow
	}

	m.mu.Lock()
	prevQuality := m.quality
	m.quality = quality
	m.latency = latency
	m.mu.Unlock()

	online := err == nil
	wasOnline := m.online.Swap(online)

	switch {
	case wasOnline && !online:
		logger.Warn("Connectivity lost", "error", err)
		m.sendEvent(Event{Type: EventOffline, Quality: quality, Error: err})
		m.listeners.notify(false)
	case !wasOnline && online:
		logger.Info("Connectivity restored", "latency", latency)
		m.sendEvent(Event{Type: EventOnline, Quality: quality, Latency: latency})
		m.listeners.notify(true)
	case online && prevQuality != quality:
		m.sendEvent(Event{Type: EventQualityChanged, Quality: quality, Latency: latency})
	}
}

// poll runs the background probing goroutine.
func (m *Monitor) poll() {
	if m.config.ProbeURL == "" {
		return
	}

	m.Check(context.Background())

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(context.Background())
		case <-m.stopChan:
			return
		}
	}
}

// sendEvent sends an event to the event channel non-blocking.
func (m *Monitor) sendEvent(event Event) {
	select {
	case m.eventChan <- event:
	default:
		// Channel full, drop oldest
		select {
		case <-m.eventChan:
		default:
		}
		select {
		case m.eventChan <- event:
		default:
		}
	}
}

// Close stops polling.
func (m *Monitor) Close() error {
	m.closeOnce.Do(func() { close(m.stopChan) })
	return nil
}
