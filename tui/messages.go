// ABOUTME: Bubble Tea message types used in the diagnostics browser message loop.
// ABOUTME: ReportMsg carries a fresh lint result from the file watcher into the model.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/flowlint/flow"
	"github.com/2389-research/flowlint/lint"
)

// ReportMsg replaces the browsed report. A non-nil Err keeps the current report
// and shows the failure in the status bar.
type ReportMsg struct {
	FlowSet *flow.FlowSet
	Report  *lint.Report
	Err     error
}

// WaitForReportCmd returns a command that blocks until the next report arrives on ch.
func WaitForReportCmd(ch <-chan ReportMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil // channel closed, no more refreshes
		}
		return msg
	}
}
