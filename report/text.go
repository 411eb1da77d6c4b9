// ABOUTME: Plain terminal output: one line per diagnostic followed by a summary line.
// ABOUTME: Severity labels are colored with lipgloss styles when color is enabled.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/flowlint/lint"
)

var (
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	WarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	NameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	SummaryStyle = lipgloss.NewStyle().Bold(true)
	CleanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// StyleForSeverity returns the lipgloss style for a diagnostic severity.
func StyleForSeverity(sev lint.Severity) lipgloss.Style {
	switch sev {
	case lint.SeverityError:
		return ErrorStyle
	default:
		return WarnStyle
	}
}

func writeText(w io.Writer, r *lint.Report, opts Options) error {
	paint := func(s lipgloss.Style, text string) string {
		if !opts.Color {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	if opts.Source != "" {
		b.WriteString(paint(SummaryStyle, opts.Source))
		b.WriteString("\n")
	}

	for _, d := range r.Result {
		fmt.Fprintf(&b, "  %s  %s  %s  %s\n",
			paint(StyleForSeverity(d.Severity), fmt.Sprintf("%-5s", d.Severity)),
			paint(NameStyle, d.Name),
			d.Message,
			paint(DimStyle, fmt.Sprintf("[%s] %s", describeIDs(opts.Flow, d.IDs), d.Rule)),
		)
	}

	summary := Summarize(r)
	if summary.Total == 0 {
		b.WriteString(paint(CleanStyle, "✓ no problems"))
	} else {
		b.WriteString("\n")
		style := WarnStyle
		if summary.Error > 0 {
			style = ErrorStyle
		}
		b.WriteString(paint(style, "✖ "+summary.String()))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
