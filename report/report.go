// ABOUTME: Writes lint reports as text, JSON, Markdown, or HTML and summarizes them by severity and check.
// ABOUTME: Text output uses lipgloss severity styles; HTML is the Markdown report rendered with goldmark.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/2389-research/flowlint/flow"
	"github.com/2389-research/flowlint/lint"
)

// Format selects an output encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
	FormatMarkdown
	FormatHTML
)

var formatNames = map[Format]string{
	FormatText:     "text",
	FormatJSON:     "json",
	FormatMarkdown: "markdown",
	FormatHTML:     "html",
}

// ParseFormat maps a format name to its Format. "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "md" {
		return FormatMarkdown, nil
	}
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown format %q (want text, json, markdown, or html)", s)
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Options controls how a report is written.
type Options struct {
	Format Format
	// Color enables severity colors in text output.
	Color bool
	// Flow, when set, lets writers describe implicated nodes by type and name.
	Flow *flow.FlowSet
	// Source names the linted input in headings.
	Source string
}

// Write encodes r to w.
func Write(w io.Writer, r *lint.Report, opts Options) error {
	if r == nil {
		r = &lint.Report{}
	}
	if r.Result == nil {
		r = &lint.Report{Result: []lint.Diagnostic{}}
	}
	switch opts.Format {
	case FormatText:
		return writeText(w, r, opts)
	case FormatJSON:
		return writeJSON(w, r)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r, opts))
		return err
	case FormatHTML:
		return writeHTML(w, r, opts)
	default:
		return fmt.Errorf("unsupported format %s", opts.Format)
	}
}

func writeJSON(w io.Writer, r *lint.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Summary counts diagnostics by severity and by check name.
type Summary struct {
	Total  int
	Warn   int
	Error  int
	ByName map[string]int
}

// Summarize computes the summary of r.
func Summarize(r *lint.Report) Summary {
	s := Summary{ByName: make(map[string]int)}
	if r == nil {
		return s
	}
	for _, d := range r.Result {
		s.Total++
		switch d.Severity {
		case lint.SeverityError:
			s.Error++
		case lint.SeverityWarn:
			s.Warn++
		}
		s.ByName[d.Name]++
	}
	return s
}

// String renders the summary line, e.g. "3 problems (1 error, 2 warnings)".
func (s Summary) String() string {
	if s.Total == 0 {
		return "no problems"
	}
	return fmt.Sprintf("%s (%s, %s)", plural(s.Total, "problem"), plural(s.Error, "error"), plural(s.Warn, "warning"))
}

// Names returns the check names in the summary, most frequent first, then alphabetical.
func (s Summary) Names() []string {
	names := make([]string, 0, len(s.ByName))
	for n := range s.ByName {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.ByName[names[i]] != s.ByName[names[j]] {
			return s.ByName[names[i]] > s.ByName[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// DescribeNode renders an implicated id with its type and name when fs knows it.
// Tab ids render with the tab label.
func DescribeNode(fs *flow.FlowSet, id string) string {
	if fs == nil {
		return id
	}
	if n, ok := fs.Node(id); ok {
		label := n.Name
		if label == "" {
			label = n.Label
		}
		if label != "" {
			return fmt.Sprintf("%s (%s %q)", id, n.Type, label)
		}
		return fmt.Sprintf("%s (%s)", id, n.Type)
	}
	if t, ok := fs.Tab(id); ok {
		if label := t.Label(); label != "" {
			return fmt.Sprintf("%s (tab %q)", id, label)
		}
		return fmt.Sprintf("%s (tab)", id)
	}
	return id
}

func describeIDs(fs *flow.FlowSet, ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = DescribeNode(fs, id)
	}
	return strings.Join(parts, ", ")
}
