package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/habitlens/internal/ui/styles"
)

// LoadingSpinner is a spinner with a label.
type LoadingSpinner struct {
	spinner spinner.Model
	Label   string
}

// NewSpinner creates a new loading spinner with the given label.
func NewSpinner(label string) LoadingSpinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)
	return LoadingSpinner{spinner: s, Label: label}
}

// Init starts the spinner.
func (l LoadingSpinner) Init() tea.Cmd {
	return l.spinner.Tick
}

// Update handles spinner tick messages.
func (l LoadingSpinner) Update(msg tea.Msg) (LoadingSpinner, tea.Cmd) {
	var cmd tea.Cmd
	l.spinner, cmd = l.spinner.Update(msg)
	return l, cmd
}

// View renders the spinner and its label.
func (l LoadingSpinner) View() string {
	if l.Label == "" {
		return l.spinner.View()
	}
	return l.spinner.View() + " " + lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(l.Label)
}

// ViewCentered renders the spinner centered in width x height.
func (l LoadingSpinner) ViewCentered(width, height int) string {
	return styles.CenterBoth(l.View(), width, height)
}
