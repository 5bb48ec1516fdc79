package main

import (
	"github.com/charmbracelet/lipgloss"

	"par/pkg/job"
)

// Theme defines the visual styling for the par dashboard.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
}

// DefaultTheme returns the default theme for par-dash.
func DefaultTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("12"),  // Blue
		Secondary: lipgloss.Color("14"),  // Cyan
		Success:   lipgloss.Color("10"),  // Green
		Warning:   lipgloss.Color("11"),  // Yellow
		Error:     lipgloss.Color("9"),   // Red
		Muted:     lipgloss.Color("240"), // Gray
	}
}

// statusColor maps a job status onto the theme's palette.
func (t Theme) statusColor(s job.Status) lipgloss.Color {
	switch s {
	case job.StatusSuccess:
		return t.Success
	case job.StatusFailed:
		return t.Error
	case job.StatusTimeout:
		return t.Warning
	case job.StatusCancelled:
		return t.Muted
	default:
		return t.Secondary
	}
}

// renderStatus paints a status word in its theme color.
func (t Theme) renderStatus(s job.Status) string {
	return lipgloss.NewStyle().Foreground(t.statusColor(s)).Render(string(s))
}
