// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"sync"
	"time"

	"github.com/j-veylop/habitlens/internal/cache"
	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/services"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

// LoadingNotificationID is the fixed ID for loading notifications.
const LoadingNotificationID = "__loading__"

const maxNotifications = 10

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// LoadingState tracks loading states for different resources.
type LoadingState struct {
	Initial bool
	Habits  bool
	Cache   bool
}

// State is shared between the root model and the tabs.
type State struct {
	mu sync.RWMutex

	Habits             []services.HabitAnalytics
	SelectedHabitIndex int
	Period             models.TrendPeriod
	CacheStats         *cache.Stats
	Connectivity       services.ConnectivityStatus

	Loading LoadingState

	LastUpdated time.Time

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty state with the initial load pending.
func NewState() *State {
	return &State{
		Habits:        make([]services.HabitAnalytics, 0),
		Period:        models.TrendFourWeeks,
		Connectivity:  services.ConnectivityStatus{Online: true},
		notifications: make([]Notification, 0),
		Loading: LoadingState{
			Initial: true,
		},
	}
}

// SetLoading sets the loading state for a specific resource.
func (s *State) SetLoading(resource string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch resource {
	case "initial":
		s.Loading.Initial = loading
	case "habits":
		s.Loading.Habits = loading
	case "cache":
		s.Loading.Cache = loading
	}
}

// AnyLoading returns true if any resource is currently loading.
func (s *State) AnyLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial || s.Loading.Habits || s.Loading.Cache
}

// IsInitialLoading returns true if initial data is still loading.
func (s *State) IsInitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial
}

// GetLoadingResources returns a list of currently loading resources.
func (s *State) GetLoadingResources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var resources []string
	if s.Loading.Initial {
		resources = append(resources, "initial")
	}
	if s.Loading.Habits {
		resources = append(resources, "habits")
	}
	if s.Loading.Cache {
		resources = append(resources, "cache")
	}
	return resources
}

// SetHabits replaces the overview. The selection is clamped to the new list.
func (s *State) SetHabits(habits []services.HabitAnalytics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Habits = habits
	s.LastUpdated = time.Now()
	if s.SelectedHabitIndex >= len(habits) {
		s.SelectedHabitIndex = max(len(habits)-1, 0)
	}
}

// GetHabits returns a copy of the overview.
func (s *State) GetHabits() []services.HabitAnalytics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	habits := make([]services.HabitAnalytics, len(s.Habits))
	copy(habits, s.Habits)
	return habits
}

// GetHabitCount returns the number of habits.
func (s *State) GetHabitCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Habits)
}

// UpdateAnalytics replaces the analytics of one habit in place.
// It reports false when the habit is not in the overview.
func (s *State) UpdateAnalytics(habitID string, a *services.Analytics) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Habits {
		if s.Habits[i].Habit.ID == habitID {
			s.Habits[i].Analytics = a
			s.Habits[i].Err = nil
			s.LastUpdated = time.Now()
			return true
		}
	}
	return false
}

// GetSelectedHabitIndex returns the currently selected habit index.
func (s *State) GetSelectedHabitIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SelectedHabitIndex
}

// SetSelectedHabitIndex updates the selected habit index.
func (s *State) SetSelectedHabitIndex(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SelectedHabitIndex = idx
}

// SelectedHabit returns the selected overview entry.
func (s *State) SelectedHabit() (services.HabitAnalytics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.SelectedHabitIndex < 0 || s.SelectedHabitIndex >= len(s.Habits) {
		return services.HabitAnalytics{}, false
	}
	return s.Habits[s.SelectedHabitIndex], true
}

// GetPeriod returns the trend period shown on the insights tab.
func (s *State) GetPeriod() models.TrendPeriod {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Period
}

// CyclePeriod advances to the next trend period and returns it.
func (s *State) CyclePeriod() models.TrendPeriod {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Period = s.Period.Next()
	return s.Period
}

// SetCacheStats stores the latest cache diagnostics.
func (s *State) SetCacheStats(stats cache.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CacheStats = &stats
}

// GetCacheStats returns the latest cache diagnostics, nil before the first load.
func (s *State) GetCacheStats() *cache.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CacheStats
}

// SetConnectivity stores the network state.
func (s *State) SetConnectivity(status services.ConnectivityStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Connectivity = status
}

// GetConnectivity returns the network state.
func (s *State) GetConnectivity() services.ConnectivityStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Connectivity
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := time.Now().Format("20060102150405") + "-" + string(rune('A'+s.notificationSeq%26))

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = activeNotifications(s.notifications)
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeNotifications(s.notifications)
}

func activeNotifications(all []Notification) []Notification {
	active := make([]Notification, 0, len(all))
	for _, n := range all {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// ClearAllNotifications removes all notifications.
func (s *State) ClearAllNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = make([]Notification, 0)
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// GetLastUpdated returns the last time the overview changed.
func (s *State) GetLastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastUpdated
}

// TimeSinceUpdate returns the duration since the last update.
func (s *State) TimeSinceUpdate() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LastUpdated.IsZero() {
		return 0
	}
	return time.Since(s.LastUpdated)
}
