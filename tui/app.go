// ABOUTME: Top-level Bubble Tea model for browsing lint diagnostics.
// ABOUTME: Composes the list, detail, and status panels and handles navigation keys and watch refreshes.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/flowlint/flow"
	"github.com/2389-research/flowlint/lint"
)

// AppModel is the root model of the diagnostics browser.
type AppModel struct {
	list      ListPanelModel
	detail    DetailPanelModel
	statusBar StatusBarModel

	fs      *flow.FlowSet
	report  *lint.Report
	updates <-chan ReportMsg

	width  int
	height int
}

// NewAppModel creates a browser over report. fs resolves node ids in the detail panel
// and may be nil.
func NewAppModel(source string, fs *flow.FlowSet, r *lint.Report) AppModel {
	if r == nil {
		r = &lint.Report{}
	}
	m := AppModel{
		list:      NewListPanelModel(r.Result),
		detail:    NewDetailPanelModel(),
		statusBar: NewStatusBarModel(source),
		fs:        fs,
		report:    r,
	}
	m.statusBar.SetReport(r, time.Now())
	m.syncSelection()
	return m
}

// WithUpdates makes the model listen for refreshed reports on ch.
func (m AppModel) WithUpdates(ch <-chan ReportMsg) AppModel {
	m.updates = ch
	return m
}

// Init implements tea.Model.
func (m AppModel) Init() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return WaitForReportCmd(m.updates)
}

// Update implements tea.Model.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)

	case ReportMsg:
		return m.handleReport(msg)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

// View implements tea.Model.
func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	// Minimum terminal size guard to prevent layout overflow
	if m.width < 40 || m.height < 10 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 40x10.", m.width, m.height)
	}

	statusBarHeight := 1
	panelHeight := m.height - statusBarHeight
	listWidth := m.width * 55 / 100
	detailWidth := m.width - listWidth

	m.list.SetSize(listWidth, panelHeight)
	m.detail.SetSize(detailWidth, panelHeight)
	m.statusBar.SetWidth(m.width)

	panels := lipgloss.JoinHorizontal(lipgloss.Top, m.list.View(), m.detail.View())

	var b strings.Builder
	b.WriteString(panels)
	b.WriteString("\n")
	b.WriteString(m.statusBar.View())
	return b.String()
}

// Selected returns the diagnostic under the cursor.
func (m AppModel) Selected() (lint.Diagnostic, bool) {
	return m.list.Selected()
}

func (m AppModel) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.list.SetSize(m.width*55/100, m.height-1)
	m.detail.SetSize(m.width-m.width*55/100, m.height-1)
	return m, nil
}

// handleReport swaps in a refreshed report and waits for the next one.
func (m AppModel) handleReport(msg ReportMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.statusBar.SetError(msg.Err)
	} else {
		r := msg.Report
		if r == nil {
			r = &lint.Report{}
		}
		m.fs = msg.FlowSet
		m.report = r
		m.list.SetItems(r.Result)
		m.statusBar.SetReport(r, time.Now())
		m.syncSelection()
	}
	if m.updates == nil {
		return m, nil
	}
	return m, WaitForReportCmd(m.updates)
}

func (m AppModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		m.list.Move(1)
	case "k", "up":
		m.list.Move(-1)
	case "g", "home":
		m.list.Top()
	case "G", "end":
		m.list.Bottom()
	case "pgdown", "J":
		m.detail.ScrollDown(5)
		return m, nil
	case "pgup", "K":
		m.detail.ScrollUp(5)
		return m, nil
	default:
		return m, nil
	}
	m.syncSelection()
	return m, nil
}

// syncSelection points the detail panel and status bar at the list cursor.
func (m *AppModel) syncSelection() {
	m.statusBar.SetPosition(m.list.Cursor())
	if d, ok := m.list.Selected(); ok {
		m.detail.SetDiagnostic(d, m.fs)
		return
	}
	m.detail.Clear()
}

// Run starts the browser full-screen and blocks until the user quits. updates may be nil.
func Run(source string, fs *flow.FlowSet, r *lint.Report, updates <-chan ReportMsg) error {
	model := NewAppModel(source, fs, r).WithUpdates(updates)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
