// ABOUTME: Implements a single-line status bar for the bottom of the diagnostics browser.
// ABOUTME: Displays the linted source, the problem summary, cursor position, and last refresh time.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/flowlint/lint"
	"github.com/2389-research/flowlint/report"
)

// StatusBarModel displays lint status in a single line.
type StatusBarModel struct {
	source    string
	summary   report.Summary
	position  int
	total     int
	refreshed time.Time
	err       error
	width     int
}

// NewStatusBarModel creates a status bar for source.
func NewStatusBarModel(source string) StatusBarModel {
	return StatusBarModel{source: source}
}

// SetReport updates the summary from r and records the refresh time.
func (m *StatusBarModel) SetReport(r *lint.Report, at time.Time) {
	m.summary = report.Summarize(r)
	m.total = m.summary.Total
	m.refreshed = at
	m.err = nil
}

// SetError records a failed refresh. The previous summary stays visible.
func (m *StatusBarModel) SetError(err error) {
	m.err = err
}

// SetPosition sets the 0-based cursor row.
func (m *StatusBarModel) SetPosition(i int) {
	m.position = i
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	pos := "0/0"
	if m.total > 0 {
		pos = fmt.Sprintf("%d/%d", m.position+1, m.total)
	}
	content := fmt.Sprintf("Flow: %s | %s | %s", m.source, m.summary, pos)
	if !m.refreshed.IsZero() {
		content += " | " + m.refreshed.Format("15:04:05")
	}
	if m.err != nil {
		content += " | " + ErrorStyle.Render(fmt.Sprintf("refresh failed: %v", m.err))
	}

	style := StatusBarStyle.Width(m.width)

	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(content))
}
