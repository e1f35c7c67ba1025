// Package styles defines the visual styling for the application.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/habitlens/internal/models"
)

// Palette.
var (
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue
	Streak  = lipgloss.Color("208") // Orange

	BgDark   = lipgloss.Color("235")
	BgLight  = lipgloss.Color("237")
	BgAccent = lipgloss.Color("236")

	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")

	// ToastStyle for floating notifications.
	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// SubTitleStyle is used for section headings.
var SubTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary)

// DocStyle provides consistent document margins.
var DocStyle = lipgloss.NewStyle().
	Margin(1, 2).
	Padding(0, 1)

// CardStyle creates a bordered card container.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(1, 2).
	MarginBottom(1)

// SelectedCardStyle highlights the card under the cursor.
var SelectedCardStyle = CardStyle.
	BorderForeground(Primary)

// CardTitleStyle styles card headers.
var CardTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary)

var (
	HelpStyle = lipgloss.NewStyle().Foreground(TextMuted)

	// HelpPanelStyle creates the help overlay panel.
	HelpPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Primary).
			Padding(1, 3).
			Background(BgDark)

	ProgressLabelStyle = lipgloss.NewStyle().
				Foreground(TextSecondary).
				Width(20)

	LabelStyle = lipgloss.NewStyle().Width(18).Foreground(TextMuted)
	ValueStyle = lipgloss.NewStyle().Foreground(TextPrimary)
)

// TableHeaderStyle styles table headers.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	Padding(0, 1)

// TableCellStyle styles table cells.
var TableCellStyle = lipgloss.NewStyle().
	Padding(0, 1)

var (
	ErrorTextStyle   = lipgloss.NewStyle().Foreground(Error)
	SuccessTextStyle = lipgloss.NewStyle().Foreground(Success)
	WarningTextStyle = lipgloss.NewStyle().Foreground(Warning)
	InfoTextStyle    = lipgloss.NewStyle().Foreground(Info)
	StreakStyle      = lipgloss.NewStyle().Foreground(Streak).Bold(true)
	StaleStyle       = lipgloss.NewStyle().Foreground(Warning).Italic(true)
)

// RateStyle returns the style for a completion rate in percent.
func RateStyle(rate float64) lipgloss.Style {
	switch {
	case rate >= 70:
		return SuccessTextStyle
	case rate >= 40:
		return WarningTextStyle
	default:
		return ErrorTextStyle
	}
}

// TrendStyle returns the style for a trend direction.
func TrendStyle(d models.Direction) lipgloss.Style {
	switch d {
	case models.DirectionUp:
		return SuccessTextStyle
	case models.DirectionDown:
		return ErrorTextStyle
	default:
		return HelpStyle
	}
}

// TrendArrow returns a one-character glyph for a trend direction.
func TrendArrow(d models.Direction) string {
	switch d {
	case models.DirectionUp:
		return "▲"
	case models.DirectionDown:
		return "▼"
	default:
		return "■"
	}
}

// CenterBoth centers content both horizontally and vertically.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
