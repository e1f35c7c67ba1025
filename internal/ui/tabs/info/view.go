package info

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/habitlens/internal/config"
	"github.com/j-veylop/habitlens/internal/ui/components"
	"github.com/j-veylop/habitlens/internal/ui/styles"
	"github.com/j-veylop/habitlens/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderConnectivityCard(),
		m.renderCacheCard(),
		m.renderAboutCard(),
	)

	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration, connectivity and cache")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 80)
}

func (m *Model) card(title string, rows ...string) string {
	all := append([]string{styles.CardTitleStyle.Render(title), ""}, rows...)
	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, all...),
	)
}

// row renders a key-value line.
func row(label, value string) string {
	return styles.LabelStyle.Render(label+":") + " " + styles.ValueStyle.Render(value)
}

func (m *Model) renderConfigCard() string {
	cfg := m.config
	if cfg == nil {
		return m.card("Configuration", styles.HelpStyle.Render("Configuration not loaded"))
	}

	rows := []string{
		row("User", cfg.UserID),
		row("Records Source", cfg.RecordsSource),
	}
	switch cfg.RecordsSource {
	case config.SourceFile:
		rows = append(rows, row("Records File", cfg.RecordsPath))
	case config.SourceMongo:
		rows = append(rows, row("Mongo Database", cfg.MongoDB), row("Mongo URI", configured(cfg.MongoURI)))
	}

	rows = append(rows, row("Cache Backend", cfg.CacheBackend))
	if cfg.CacheBackend == config.BackendRedis {
		rows = append(rows, row("Redis URL", configured(cfg.RedisURL)))
	}

	rows = append(rows,
		row("Database", cfg.DatabasePath),
		row("Log Directory", cfg.LogDir),
		row("Retry Attempts", fmt.Sprintf("%d (base delay %s)", cfg.RetryAttempts, cfg.RetryBaseDelay)),
		row("Engine Workers", fmt.Sprintf("%d", cfg.EngineWorkers)),
	)
	if cfg.MetricsAddr != "" {
		rows = append(rows, row("Metrics", cfg.MetricsAddr))
	}
	return m.card("Configuration", rows...)
}

// configured hides secrets that may carry credentials.
func configured(v string) string {
	if v == "" {
		return "not set"
	}
	return "configured"
}

func (m *Model) renderConnectivityCard() string {
	status := m.state.GetConnectivity()

	online := styles.SuccessTextStyle.Render("online")
	if !status.Online {
		online = styles.ErrorTextStyle.Render("offline")
	}

	rows := []string{styles.LabelStyle.Render("Status:") + " " + online}
	if status.Quality != "" {
		rows = append(rows, row("Quality", string(status.Quality)))
	}
	if status.Probing {
		rows = append(rows, row("Latency", status.Latency.String()))
	} else {
		rows = append(rows, styles.HelpStyle.Render("No probe URL configured; assuming online."))
	}
	return m.card("Connectivity", rows...)
}

func (m *Model) renderCacheCard() string {
	stats := m.state.GetCacheStats()
	if stats == nil {
		return m.card("Analytics Cache", styles.HelpStyle.Render("Cache statistics not loaded"))
	}

	expired := fmt.Sprintf("%d", stats.ExpiredEntries)
	if stats.ExpiredEntries > 0 {
		expired = styles.WarningTextStyle.Render(expired)
	}

	return m.card("Analytics Cache",
		row("Entries", fmt.Sprintf("%d", stats.TotalEntries)),
		styles.LabelStyle.Render("Expired:")+" "+expired,
		row("Size", formatBytes(stats.TotalSizeBytes)),
		"",
		styles.HelpStyle.Render("Press 'c' to drop expired entries, 'x' to clear your cache"),
	)
}

func formatBytes(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

func (m *Model) renderAboutCard() string {
	rows := []string{
		row("Version", version.GetVersion()),
		row("Build Date", version.GetDate()),
		row("Git Commit", version.GetCommit()),
		row("Go Version", runtime.Version()),
		row("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
		"",
		fmt.Sprintf("Habits: %s", styles.InfoTextStyle.Render(fmt.Sprintf("%d", m.state.GetHabitCount()))),
	}
	if last := m.state.GetLastUpdated(); !last.IsZero() {
		rows = append(rows, styles.HelpStyle.Render("Updated "+components.FormatAge(m.state.TimeSinceUpdate())+" ago"))
	}
	return m.card("About habitlens", rows...)
}
