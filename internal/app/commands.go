package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/habitlens/internal/services"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second

	// loadTimeout bounds a single overview or analytics load.
	loadTimeout = 30 * time.Second
)

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// defaultTickCmd returns a command that sends a TickMsg after the default interval.
func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// loadInitialData returns a command that loads all initial data.
func loadInitialData(mgr *services.Manager, userID string) tea.Cmd {
	return tea.Batch(
		loadOverviewCmd(mgr, userID, false),
		loadCacheStatsCmd(mgr),
	)
}

// loadOverviewCmd returns a command that loads analytics for every habit.
func loadOverviewCmd(mgr *services.Manager, userID string, force bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		habits, err := mgr.Overview(ctx, userID, force)
		return HabitsLoadedMsg{Habits: habits, Error: err}
	}
}

// loadAnalyticsCmd returns a command that loads analytics for one habit.
func loadAnalyticsCmd(mgr *services.Manager, userID, habitID string, force bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		a, err := mgr.GetAnalytics(ctx, userID, habitID, force)
		return AnalyticsLoadedMsg{HabitID: habitID, Analytics: a, Error: err}
	}
}

// loadCacheStatsCmd returns a command that loads cache diagnostics.
func loadCacheStatsCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		stats, err := mgr.CacheStats()
		return CacheStatsMsg{Stats: stats, Error: err}
	}
}

// clearCacheCmd returns a command that drops every cached result of userID.
func clearCacheCmd(mgr *services.Manager, userID string) tea.Cmd {
	return func() tea.Msg {
		return CacheClearedMsg{Removed: mgr.ClearCache(userID)}
	}
}

// cleanupCacheCmd returns a command that removes expired cache entries.
func cleanupCacheCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		return CacheClearedMsg{Removed: mgr.CleanupCache(), Expired: true}
	}
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch, _ := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

func notifyCmd(t NotificationType, message string, d time.Duration) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{Type: t, Message: message, Duration: d}
	}
}

// notifySuccessCmd returns a command that adds a success notification.
func notifySuccessCmd(message string) tea.Cmd {
	return notifyCmd(NotificationSuccess, message, DefaultNotificationDuration)
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return notifyCmd(NotificationError, message, LongNotificationDuration)
}

// notifyWarningCmd returns a command that adds a warning notification.
func notifyWarningCmd(message string) tea.Cmd {
	return notifyCmd(NotificationWarning, message, DefaultNotificationDuration)
}

// notifyInfoCmd returns a command that adds an info notification.
func notifyInfoCmd(message string) tea.Cmd {
	return notifyCmd(NotificationInfo, message, QuickNotificationDuration)
}

// Commands gives tabs access to service commands bound to the current user.
type Commands struct {
	manager *services.Manager
	userID  string
}

// NewCommands creates a new Commands instance.
func NewCommands(mgr *services.Manager) *Commands {
	c := &Commands{manager: mgr}
	if mgr != nil {
		c.userID = mgr.Config().UserID
	}
	return c
}

// UserID returns the user whose habits are shown.
func (c *Commands) UserID() string {
	return c.userID
}

// Tick returns a tick command with the specified interval.
func (c *Commands) Tick(interval time.Duration) tea.Cmd {
	return tickCmd(interval)
}

// DefaultTick returns a tick command with the default interval.
func (c *Commands) DefaultTick() tea.Cmd {
	return defaultTickCmd()
}

// LoadOverview returns a command that loads the habit overview.
// It is nil without a service manager.
func (c *Commands) LoadOverview(force bool) tea.Cmd {
	if c.manager == nil {
		return nil
	}
	return loadOverviewCmd(c.manager, c.userID, force)
}

// LoadAnalytics returns a command that loads one habit's analytics.
func (c *Commands) LoadAnalytics(habitID string, force bool) tea.Cmd {
	if c.manager == nil {
		return nil
	}
	return loadAnalyticsCmd(c.manager, c.userID, habitID, force)
}

// LoadCacheStats returns a command that loads cache diagnostics.
func (c *Commands) LoadCacheStats() tea.Cmd {
	if c.manager == nil {
		return nil
	}
	return loadCacheStatsCmd(c.manager)
}

// ClearCache returns a command that clears the user's cached analytics.
func (c *Commands) ClearCache() tea.Cmd {
	if c.manager == nil {
		return nil
	}
	return clearCacheCmd(c.manager, c.userID)
}

// CleanupCache returns a command that removes expired cache entries.
func (c *Commands) CleanupCache() tea.Cmd {
	if c.manager == nil {
		return nil
	}
	return cleanupCacheCmd(c.manager)
}

// NotifySuccess returns a command that adds a success notification.
func (c *Commands) NotifySuccess(message string) tea.Cmd {
	return notifySuccessCmd(message)
}

// NotifyError returns a command that adds an error notification.
func (c *Commands) NotifyError(message string) tea.Cmd {
	return notifyErrorCmd(message)
}

// NotifyWarning returns a command that adds a warning notification.
func (c *Commands) NotifyWarning(message string) tea.Cmd {
	return notifyWarningCmd(message)
}

// NotifyInfo returns a command that adds an info notification.
func (c *Commands) NotifyInfo(message string) tea.Cmd {
	return notifyInfoCmd(message)
}

// ClearNotification returns a command that removes a notification after a delay.
func (c *Commands) ClearNotification(id string, delay time.Duration) tea.Cmd {
	return clearNotificationCmd(id, delay)
}
