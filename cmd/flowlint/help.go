// ABOUTME: Help display for the flowlint CLI with grouped flags, exit codes, and examples.
// ABOUTME: printHelp is also installed as the flag set's Usage function.
package main

import (
	"fmt"
	"io"
)

// printHelp writes a formatted help message to w.
func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "flowlint %s: static checks for Node-RED flow exports\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  flowlint [flags] <flows.json>       Lint a flow export")
	fmt.Fprintln(w, "  flowlint -tui [-watch] <flows.json> Browse diagnostics interactively")
	fmt.Fprintln(w, "  flowlint -server [-port 2389]       Start HTTP lint API")
	fmt.Fprintln(w, "  flowlint -mcp                       Serve the lint_flow tool over stdio")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Lint Flags:")
	fmt.Fprintln(w, "  -config <file>        Config file (default: .flowlintrc.yaml, then $XDG_CONFIG_HOME/flowlint/config.yaml)")
	fmt.Fprintln(w, "  -format <fmt>         text, json, markdown, html (default: text)")
	fmt.Fprintln(w, "  -no-color             Disable colored text output")
	fmt.Fprintln(w, "  -jobs <n>             Run up to n checks in parallel (default: 1)")
	fmt.Fprintln(w, "  -strict               Exit 1 on warnings as well as errors")
	fmt.Fprintln(w, "  -watch                Re-lint whenever the file changes")
	fmt.Fprintln(w, "  -tui                  Browse diagnostics in an interactive terminal UI")
	fmt.Fprintln(w, "  -verbose              Log each executed check to stderr")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "History Flags:")
	fmt.Fprintln(w, "  -history              Record runs in the history database")
	fmt.Fprintln(w, "  -history-keep <n>     Keep only the newest n runs (default: 0, keep all)")
	fmt.Fprintln(w, "  -data-dir <dir>       History directory (default: $XDG_DATA_HOME/flowlint)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Server Flags:")
	fmt.Fprintln(w, "  -server               Start HTTP server mode")
	fmt.Fprintln(w, "  -port <port>          Server port (default: 2389)")
	fmt.Fprintln(w, "  -mcp                  Start MCP server on stdin/stdout")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Other:")
	fmt.Fprintln(w, "  -version              Print version and exit")
	fmt.Fprintln(w, "  -help                 Show this help")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Exit Codes:")
	fmt.Fprintln(w, "  0  no problems, or warnings only")
	fmt.Fprintln(w, "  1  error diagnostics (or any diagnostic with -strict), or lint failure")
	fmt.Fprintln(w, "  2  usage error")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  flowlint flows.json")
	fmt.Fprintln(w, "  flowlint -format json -strict flows.json")
	fmt.Fprintln(w, "  flowlint -config ci.flowlintrc.yaml -format markdown flows.json > report.md")
	fmt.Fprintln(w, "  flowlint -tui -watch ~/.node-red/flows.json")
	fmt.Fprintln(w, "  flowlint -server -history -port 8080")
}
