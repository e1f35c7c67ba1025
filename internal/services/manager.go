// Package services provides service orchestration for the TUI and CLI.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"
	"golang.org/x/sync/singleflight"

	"github.com/j-veylop/habitlens/internal/cache"
	"github.com/j-veylop/habitlens/internal/config"
	"github.com/j-veylop/habitlens/internal/db"
	"github.com/j-veylop/habitlens/internal/engine"
	"github.com/j-veylop/habitlens/internal/logger"
	"github.com/j-veylop/habitlens/internal/metrics"
	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/retry"
	"github.com/j-veylop/habitlens/internal/services/connectivity"
	"github.com/j-veylop/habitlens/internal/services/insights"
	"github.com/j-veylop/habitlens/internal/services/records"
)

type (
	// HabitsChangedEvent is emitted when a user's records changed underneath.
	HabitsChangedEvent struct {
		UserID string
	}

	// AnalyticsUpdatedEvent is emitted when analytics were computed or served.
	AnalyticsUpdatedEvent struct {
		HabitID   string
		Analytics *Analytics
	}

	// ConnectivityChangedEvent is emitted on online/offline and quality transitions.
	ConnectivityChangedEvent struct {
		Online  bool
		Quality connectivity.Quality
		Latency time.Duration
	}

	// CacheCleanedEvent is emitted after the periodic cleanup removed entries.
	CacheCleanedEvent struct {
		Removed int
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (HabitsChangedEvent) isServiceEvent()       {}
func (AnalyticsUpdatedEvent) isServiceEvent()    {}
func (ConnectivityChangedEvent) isServiceEvent() {}
func (CacheCleanedEvent) isServiceEvent()        {}
func (ErrorEvent) isServiceEvent()               {}

// notifyFunc sends desktop notifications.
var notifyFunc = func(title, body string) error {
	return beeep.Notify(title, body, "")
}

// Option overrides a dependency that NewManager would otherwise build from
// the configuration.
type Option func(*Manager)

// WithSource sets the record source.
func WithSource(src records.Source) Option {
	return func(m *Manager) { m.source = src }
}

// WithStorage sets the cache storage.
func WithStorage(s cache.Storage) Option {
	return func(m *Manager) { m.storage = s }
}

// WithConnectivity sets the connectivity source.
func WithConnectivity(src connectivity.Source) Option {
	return func(m *Manager) { m.connectivity = src }
}

// WithMetrics sets the metrics exporter.
func WithMetrics(e *metrics.Exporter) Option {
	return func(m *Manager) { m.metrics = e }
}

// WithClock overrides the time source of the cache and the calculations.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager orchestrates services and event routing.
type Manager struct {
	mu     sync.RWMutex
	cfg    *config.Config
	now    func() time.Time
	policy retry.Policy

	database     *db.DB
	source       records.Source
	fileSource   *records.FileSource
	storage      cache.Storage
	cache        *cache.Cache
	engine       *engine.Engine
	insights     *insights.Service
	connectivity connectivity.Source
	monitor      *connectivity.Monitor
	metrics      *metrics.Exporter

	flights        singleflight.Group
	stopChan       chan struct{}
	subscribers    []chan ServiceEvent
	unsubscribeNet func()
	closers        []io.Closer
	closeOnce      sync.Once
}

// NewManager creates a new service manager.
func NewManager(ctx context.Context, cfg *config.Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:      cfg,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.init(ctx); err != nil {
		_ = m.closeAll()
		return nil, err
	}

	go m.routeEvents()
	go m.cleanupLoop()

	return m, nil
}

func (m *Manager) init(ctx context.Context) error {
	cfg := m.cfg

	needsDB := m.source == nil && cfg.RecordsSource == config.SourceSQLite ||
		m.storage == nil && cfg.CacheBackend == config.BackendSQLite
	if needsDB {
		database, err := db.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		m.database = database
		m.closers = append(m.closers, database)
	}

	if m.source == nil {
		if err := m.openSource(ctx); err != nil {
			return err
		}
	}
	if fs, ok := m.source.(*records.FileSource); ok {
		m.fileSource = fs
		fs.OnChange(m.invalidateUsers)
	}

	if m.storage == nil {
		if err := m.openStorage(); err != nil {
			return err
		}
	}

	if m.connectivity == nil {
		monCfg := connectivity.DefaultConfig()
		monCfg.ProbeURL = cfg.ConnectivityProbeURL
		monCfg.Interval = cfg.ConnectivityInterval
		m.monitor = connectivity.NewMonitor(monCfg)
		m.connectivity = m.monitor
		m.closers = append(m.closers, m.monitor)
	}
	m.unsubscribeNet = m.connectivity.Subscribe(func(online bool) {
		m.broadcast(ConnectivityChangedEvent{Online: online, Quality: m.quality()})
	})

	m.cache = cache.New(m.storage, m.connectivity, cache.WithClock(m.now), cache.WithMetrics(m.metrics))

	loc := time.Local
	m.engine = engine.New(engine.Options{Workers: cfg.EngineWorkers, Location: loc, Metrics: m.metrics})
	m.insights = insights.New(m.engine, cfg.MinDataPoints)
	m.insights.SetClock(m.now)

	m.policy = retry.Policy{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		Metrics:     m.metrics,
	}
	return nil
}

func (m *Manager) openSource(ctx context.Context) error {
	cfg := m.cfg
	switch cfg.RecordsSource {
	case config.SourceFile:
		fs, err := records.NewFileSource(cfg.RecordsPath)
		if err != nil {
			return fmt.Errorf("failed to open records file: %w", err)
		}
		m.source = fs
		m.closers = append(m.closers, fs)

	case config.SourceMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		ms, err := records.NewMongoSource(connectCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return err
		}
		m.source = ms
		m.closers = append(m.closers, ms)

	default:
		m.source = m.database
	}
	return nil
}

func (m *Manager) openStorage() error {
	switch m.cfg.CacheBackend {
	case config.BackendRedis:
		rs, err := cache.NewRedisStorage(m.cfg.RedisURL)
		if err != nil {
			return err
		}
		m.storage = rs
		m.closers = append(m.closers, rs)

	case config.BackendMemory:
		m.storage = cache.NewMemoryStorage()

	default:
		m.storage = cache.NewSQLiteStorage(m.database)
	}
	return nil
}

// routeEvents routes events from individual services to subscribers.
func (m *Manager) routeEvents() {
	var (
		netEvents  <-chan connectivity.Event
		fileEvents <-chan records.Event
	)
	if m.monitor != nil {
		netEvents = m.monitor.Events()
	}
	if m.fileSource != nil {
		fileEvents = m.fileSource.Events()
	}

	for {
		select {
		case event := <-netEvents:
			m.handleConnectivityEvent(event)

		case event := <-fileEvents:
			m.handleRecordsEvent(event)

		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleConnectivityEvent(event connectivity.Event) {
	switch event.Type {
	case connectivity.EventQualityChanged:
		m.broadcast(ConnectivityChangedEvent{Online: true, Quality: event.Quality, Latency: event.Latency})
	case connectivity.EventOffline:
		if event.Error != nil {
			logger.Debug("Connectivity probe failed", "error", event.Error)
		}
	}
}

func (m *Manager) handleRecordsEvent(event records.Event) {
	if event.Type == records.EventError {
		m.broadcast(ErrorEvent{Service: "records", Error: event.Error})
	}
}

// invalidateUsers drops cached analytics of users whose records changed.
func (m *Manager) invalidateUsers(userIDs []string) {
	for _, id := range userIDs {
		removed := m.cache.ClearUserCache(id)
		m.insights.Forget(id)
		logger.Info("Records changed, cache invalidated", "user", id, "removed", removed)
		m.broadcast(HabitsChangedEvent{UserID: id})
	}
}

func (m *Manager) cleanupLoop() {
	interval := m.cfg.CacheCleanupInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := m.cache.CleanupExpiredEntries(); removed > 0 {
				m.broadcast(CacheCleanedEvent{Removed: removed})
			}
		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) quality() connectivity.Quality {
	if m.monitor != nil {
		q, _ := m.monitor.Quality()
		return q
	}
	if m.connectivity.Online() {
		return connectivity.QualityFast
	}
	return connectivity.QualityOffline
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Config returns the configuration the manager was built from.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Metrics returns the metrics exporter, which may be nil.
func (m *Manager) Metrics() *metrics.Exporter {
	return m.metrics
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.stopChan)

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		err = m.closeAll()
	})
	return err
}

func (m *Manager) closeAll() error {
	if m.unsubscribeNet != nil {
		m.unsubscribeNet()
	}
	if m.cache != nil {
		m.cache.Cleanup()
	}
	if m.engine != nil {
		_ = m.engine.Close()
	}

	var errs []error
	// Close in reverse order of opening so the database goes last.
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// notify sends a desktop notification when enabled.
func (m *Manager) notify(title, body string) {
	if !m.cfg.Notifications {
		return
	}
	if err := notifyFunc(title, body); err != nil {
		logger.Debug("Failed to send notification", "error", err)
	}
}

// checkNotifications compares a fresh result with the previous one.
func (m *Manager) checkNotifications(habit models.Habit, prev, cur *models.AnalyticsResult) {
	prevStreak := 0
	if prev != nil {
		prevStreak = prev.CurrentStreak
	}
	if milestone, ok := insights.CrossedMilestone(prevStreak, cur.CurrentStreak); ok && prev != nil {
		m.notify(fmt.Sprintf("%d-day streak: %s", milestone, habit.DisplayName()),
			fmt.Sprintf("You have kept it up for %d days in a row.", cur.CurrentStreak))
	}

	if insights.TrendTurnedDown(prev, cur) {
		m.notify(fmt.Sprintf("Slipping: %s", habit.DisplayName()),
			insights.DescribeTrend(cur.Trends.FourWeeks))
	}
}
