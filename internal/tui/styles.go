package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/scribe/internal/progress"
)

var (
	// Colors meet WCAG AA contrast on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray

	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(BorderColor).
		MarginBottom(1).
		PaddingBottom(1)

	AgentName = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor).
			Width(16)

	SummaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	SummaryLabel = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(14)

	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)
)

// statusStyle returns the style for an agent status.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case progress.StatusRunning:
		return Secondary
	case progress.StatusCompleted:
		return Primary
	case progress.StatusSkipped:
		return Warning
	case progress.StatusFailed:
		return Error
	default:
		return Muted
	}
}
