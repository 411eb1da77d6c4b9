// ABOUTME: Defines lipgloss styles for the diagnostics browser panels, severities, and status bar.
// ABOUTME: Provides StyleForSeverity to map diagnostic severities to their display styles.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/flowlint/lint"
)

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	// Title styling
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Severity colors
	WarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	CleanStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	// Selected list row
	SelectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237")).
			Bold(true)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	// Detail panel labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(10)
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
	DimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// StyleForSeverity returns the lipgloss style for a diagnostic severity.
func StyleForSeverity(sev lint.Severity) lipgloss.Style {
	switch sev {
	case lint.SeverityError:
		return ErrorStyle
	case lint.SeverityWarn:
		return WarnStyle
	default:
		return ValueStyle
	}
}
