// ABOUTME: Implements the scrollable diagnostics list with a movable cursor.
// ABOUTME: Keeps the cursor row visible by adjusting a scroll offset as the selection moves.
package tui

import (
	"fmt"
	"strings"

	"github.com/2389-research/flowlint/lint"
)

// ListPanelModel lists diagnostics one per line.
type ListPanelModel struct {
	items  []lint.Diagnostic
	cursor int
	offset int
	width  int
	height int
}

// NewListPanelModel creates a list over items with the cursor on the first row.
func NewListPanelModel(items []lint.Diagnostic) ListPanelModel {
	return ListPanelModel{items: items}
}

// SetItems replaces the list contents, keeping the cursor in range.
func (m *ListPanelModel) SetItems(items []lint.Diagnostic) {
	m.items = items
	if m.cursor >= len(items) {
		m.cursor = len(items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampOffset()
}

// Len returns the number of diagnostics.
func (m ListPanelModel) Len() int {
	return len(m.items)
}

// Cursor returns the selected row index.
func (m ListPanelModel) Cursor() int {
	return m.cursor
}

// Selected returns the diagnostic under the cursor.
func (m ListPanelModel) Selected() (lint.Diagnostic, bool) {
	if len(m.items) == 0 {
		return lint.Diagnostic{}, false
	}
	return m.items[m.cursor], true
}

// Move shifts the cursor by delta rows, clamped to the list bounds.
func (m *ListPanelModel) Move(delta int) {
	m.cursor += delta
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampOffset()
}

// Top moves the cursor to the first row.
func (m *ListPanelModel) Top() {
	m.Move(-len(m.items))
}

// Bottom moves the cursor to the last row.
func (m *ListPanelModel) Bottom() {
	m.Move(len(m.items))
}

// SetSize sets the available dimensions.
func (m *ListPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.clampOffset()
}

// visibleRows is the number of list rows inside the border and title.
func (m ListPanelModel) visibleRows() int {
	rows := m.height - 3
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *ListPanelModel) clampOffset() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// View renders the list panel.
func (m ListPanelModel) View() string {
	title := TitleStyle.Render(fmt.Sprintf("DIAGNOSTICS (%d)", len(m.items)))

	var content string
	if len(m.items) == 0 {
		content = CleanStyle.Render("No problems found")
	} else {
		end := m.offset + m.visibleRows()
		if end > len(m.items) {
			end = len(m.items)
		}
		lines := make([]string, 0, end-m.offset)
		for i := m.offset; i < end; i++ {
			lines = append(lines, m.formatRow(i))
		}
		content = strings.Join(lines, "\n")
	}

	return BorderStyle.
		Width(max(m.width-2, 1)).
		Height(max(m.height-2, 1)).
		Render(title + "\n" + content)
}

// formatRow renders one diagnostic as "severity name message".
func (m ListPanelModel) formatRow(i int) string {
	d := m.items[i]
	sev := StyleForSeverity(d.Severity).Render(fmt.Sprintf("%-5s", d.Severity))
	row := fmt.Sprintf("%s %s %s", sev, d.Name, DimStyle.Render(d.Message))
	if i == m.cursor {
		return SelectedStyle.Render("> " + row)
	}
	return "  " + row
}
