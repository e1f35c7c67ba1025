package app

import (
	"time"

	"github.com/j-veylop/habitlens/internal/cache"
	"github.com/j-veylop/habitlens/internal/services"
)

// TickMsg is sent periodically to trigger state refresh.
type TickMsg struct {
	Time time.Time
}

// StartLoadingMsg signals that a resource is starting to load.
type StartLoadingMsg struct {
	Resource string
}

// StopLoadingMsg signals that a resource has finished loading.
type StopLoadingMsg struct {
	Resource string
}

// HabitsLoadedMsg contains the per-habit analytics overview.
type HabitsLoadedMsg struct {
	Habits []services.HabitAnalytics
	Error  error
}

// AnalyticsLoadedMsg contains analytics for a single habit.
type AnalyticsLoadedMsg struct {
	HabitID   string
	Analytics *services.Analytics
	Error     error
}

// CacheStatsMsg contains cache diagnostics.
type CacheStatsMsg struct {
	Stats cache.Stats
	Error error
}

// CacheClearedMsg reports how many entries a clear or cleanup removed.
type CacheClearedMsg struct {
	Removed int
	Expired bool // cleanup of expired entries rather than a full clear
}

// RefreshMsg requests a refresh of data.
type RefreshMsg struct {
	Resource string // "all", "habits", "cache"
	Force    bool   // bypass cached analytics
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// ConnectivityMsg carries a network state change to the tabs.
type ConnectivityMsg struct {
	Status services.ConnectivityStatus
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ClearExpiredNotificationsMsg triggers clearing of expired notifications.
type ClearExpiredNotificationsMsg struct{}

// SelectedHabitChangedMsg signals that the selected habit in the UI has changed.
type SelectedHabitChangedMsg struct {
	Index   int
	HabitID string
}
