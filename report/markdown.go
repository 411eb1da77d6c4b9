// ABOUTME: Markdown and HTML report writers; HTML is the Markdown table rendered by goldmark.
// ABOUTME: Cell text is escaped so node names and messages cannot inject markup.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389-research/flowlint/lint"
)

// Markdown renders r as a Markdown document with a summary and a diagnostics table.
func Markdown(r *lint.Report, opts Options) string {
	var b strings.Builder
	title := "flowlint report"
	if opts.Source != "" {
		title += ": " + escapeCell(opts.Source)
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	summary := Summarize(r)
	if summary.Total == 0 {
		b.WriteString("No problems found.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "**%s**\n\n", summary.String())

	b.WriteString("| Severity | Rule | Check | Nodes | Message |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, d := range r.Result {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			d.Severity,
			escapeCell(d.Rule),
			escapeCell(d.Name),
			escapeCell(describeIDs(opts.Flow, d.IDs)),
			escapeCell(d.Message),
		)
	}

	if len(summary.ByName) > 1 {
		b.WriteString("\n## By check\n\n")
		for _, name := range summary.Names() {
			fmt.Fprintf(&b, "- %s: %d\n", escapeCell(name), summary.ByName[name])
		}
	}
	return b.String()
}

// markdownEscaper backslash-escapes punctuation that Markdown or table syntax would interpret.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
	"\n", " ",
	"\r", " ",
)

func escapeCell(s string) string {
	return markdownEscaper.Replace(s)
}

// htmlPage wraps the rendered report body in a standalone document.
const htmlPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; text-align: left; }
th { background: #f4f4f4; }
</style>
</head>
<body>
%s</body>
</html>
`

// RenderHTML converts the Markdown report to an HTML fragment with goldmark.
// Raw HTML in the input is not passed through.
func RenderHTML(r *lint.Report, opts Options) (string, error) {
	var buf bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := md.Convert([]byte(Markdown(r, opts)), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

func writeHTML(w io.Writer, r *lint.Report, opts Options) error {
	body, err := RenderHTML(r, opts)
	if err != nil {
		return err
	}
	title := "flowlint report"
	if opts.Source != "" {
		title += ": " + opts.Source
	}
	_, err = fmt.Fprintf(w, htmlPage, template.HTMLEscapeString(title), body)
	return err
}
