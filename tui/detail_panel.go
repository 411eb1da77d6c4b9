// ABOUTME: Bubble Tea sub-model showing the selected diagnostic and its implicated nodes.
// ABOUTME: Content lives in a bubbles viewport so long node lists can scroll.
package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/2389-research/flowlint/flow"
	"github.com/2389-research/flowlint/lint"
)

// DetailPanelModel displays the selected diagnostic.
type DetailPanelModel struct {
	viewport viewport.Model
	active   *lint.Diagnostic
	width    int
	height   int
}

// NewDetailPanelModel creates a detail panel with nothing selected.
func NewDetailPanelModel() DetailPanelModel {
	return DetailPanelModel{viewport: viewport.New(40, 10)}
}

// SetDiagnostic shows d, resolving its ids against fs.
func (m *DetailPanelModel) SetDiagnostic(d lint.Diagnostic, fs *flow.FlowSet) {
	m.active = &d
	m.viewport.SetContent(formatDetail(d, fs))
	m.viewport.GotoTop()
}

// Clear removes the selected diagnostic.
func (m *DetailPanelModel) Clear() {
	m.active = nil
	m.viewport.SetContent("")
}

// SetSize sets the available dimensions and updates the viewport.
func (m *DetailPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	// Reserve space for the border (2 lines top/bottom) and title (1 line)
	vpWidth := w - 2
	vpHeight := h - 3
	if vpWidth < 1 {
		vpWidth = 1
	}
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
}

// ScrollDown scrolls the detail content by n lines.
func (m *DetailPanelModel) ScrollDown(n int) {
	m.viewport.ScrollDown(n)
}

// ScrollUp scrolls the detail content by n lines.
func (m *DetailPanelModel) ScrollUp(n int) {
	m.viewport.ScrollUp(n)
}

// View renders the detail panel.
func (m DetailPanelModel) View() string {
	title := TitleStyle.Render("DETAIL")

	var content string
	if m.active == nil {
		content = ValueStyle.Render("Nothing selected")
	} else {
		content = m.viewport.View()
	}

	return BorderStyle.
		Width(max(m.width-2, 1)).
		Height(max(m.height-2, 1)).
		Render(title + "\n" + content)
}

// formatDetail lays out the diagnostic fields followed by one block per implicated id.
func formatDetail(d lint.Diagnostic, fs *flow.FlowSet) string {
	var lines []string
	field := func(label, value string) {
		lines = append(lines, LabelStyle.Render(label)+ValueStyle.Render(value))
	}
	field("Severity", StyleForSeverity(d.Severity).Render(string(d.Severity)))
	field("Rule", d.Rule)
	field("Check", d.Name)
	field("Message", d.Message)
	lines = append(lines, "", TitleStyle.Render("Nodes"))

	for _, id := range d.IDs {
		lines = append(lines, "  "+id)
		for _, kv := range describeID(fs, id) {
			lines = append(lines, "    "+LabelStyle.Render(kv[0])+ValueStyle.Render(kv[1]))
		}
	}
	return strings.Join(lines, "\n")
}

// describeID returns label/value pairs for an id: its type, tab, and name, or the
// tab label when the id names a tab.
func describeID(fs *flow.FlowSet, id string) [][2]string {
	if fs == nil {
		return nil
	}
	var out [][2]string
	if n, ok := fs.Node(id); ok {
		out = append(out, [2]string{"type", n.Type})
		if n.Z != "" {
			tab := n.Z
			if t, ok := fs.Tab(n.Z); ok && t.Label() != "" {
				tab += " (" + t.Label() + ")"
			}
			out = append(out, [2]string{"tab", tab})
		}
		if n.Name != "" {
			out = append(out, [2]string{"name", n.Name})
		}
		if n.Label != "" {
			out = append(out, [2]string{"label", n.Label})
		}
		return out
	}
	if t, ok := fs.Tab(id); ok {
		out = append(out, [2]string{"type", "tab"})
		if t.Label() != "" {
			out = append(out, [2]string{"label", t.Label()})
		}
		out = append(out, [2]string{"nodes", strconv.Itoa(len(t.Nodes))})
		return out
	}
	return [][2]string{{"type", "unknown"}}
}
