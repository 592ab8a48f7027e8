package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Muted     = lipgloss.Color("#6B7280") // Gray
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red
	White     = lipgloss.Color("#FFFFFF")

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	// Count table
	Label = lipgloss.NewStyle().
		Foreground(Muted).
		Width(16)

	Count = lipgloss.NewStyle().
		Bold(true).
		Align(lipgloss.Right).
		Width(8)

	Created = lipgloss.NewStyle().
		Foreground(Secondary).
		Align(lipgloss.Right).
		Width(8)

	Deleted = lipgloss.NewStyle().
		Foreground(Error).
		Align(lipgloss.Right).
		Width(8)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(White).
		Background(Primary).
		Padding(0, 1)

	// Dry run banner
	DryRun = lipgloss.NewStyle().
		Foreground(Warning).
		Bold(true)

	// Diagnostics
	DiagWarning = lipgloss.NewStyle().
			Foreground(Warning)

	DiagError = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	// Message styles
	Success = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	ErrorMsg = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	MutedText = lipgloss.NewStyle().
			Foreground(Muted)
)
