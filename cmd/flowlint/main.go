// ABOUTME: CLI entrypoint for flowlint with one-shot, watch, TUI, HTTP server, and MCP modes.
// ABOUTME: Loads config and plugins, runs the lint engine, writes reports, and maps results to exit codes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/2389-research/flowlint/config"
	"github.com/2389-research/flowlint/flow"
	"github.com/2389-research/flowlint/history"
	"github.com/2389-research/flowlint/lint"
	"github.com/2389-research/flowlint/mcpserver"
	"github.com/2389-research/flowlint/plugin"
	"github.com/2389-research/flowlint/report"
	"github.com/2389-research/flowlint/server"
	"github.com/2389-research/flowlint/tui"
	"github.com/2389-research/flowlint/watch"
)

var version = "dev"

// Exit codes.
const (
	exitOK      = 0
	exitProblem = 1
	exitUsage   = 2
)

// historyFileName is the SQLite database inside the data directory.
const historyFileName = "history.db"

// cliConfig holds all CLI configuration parsed from flags and positional arguments.
type cliConfig struct {
	configPath  string
	format      string
	noColor     bool
	jobs        int
	serverMode  bool
	port        int
	mcpMode     bool
	tuiMode     bool
	watchMode   bool
	history     bool
	historyKeep int
	dataDir     string
	verbose     bool
	showVersion bool
	strict      bool
	flowFile    string
}

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(exitOK)
		}
		os.Exit(exitUsage)
	}

	if cfg.showVersion {
		fmt.Printf("flowlint %s\n", version)
		os.Exit(exitOK)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// parseArgs parses command-line flags into a cliConfig. Parse errors have already been
// reported to stderr when returned.
func parseArgs(args []string, stderr io.Writer) (cliConfig, error) {
	var cfg cliConfig

	fs := flag.NewFlagSet("flowlint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.configPath, "config", "", "Config file path")
	fs.StringVar(&cfg.format, "format", "text", "Output format: text, json, markdown, html")
	fs.BoolVar(&cfg.noColor, "no-color", false, "Disable colored output")
	fs.IntVar(&cfg.jobs, "jobs", 1, "Checks to run in parallel")
	fs.BoolVar(&cfg.serverMode, "server", false, "Start HTTP server mode")
	fs.IntVar(&cfg.port, "port", 2389, "Server port (default: 2389)")
	fs.BoolVar(&cfg.mcpMode, "mcp", false, "Start MCP server on stdio")
	fs.BoolVar(&cfg.tuiMode, "tui", false, "Browse diagnostics in an interactive terminal UI")
	fs.BoolVar(&cfg.watchMode, "watch", false, "Re-lint when the flow file changes")
	fs.BoolVar(&cfg.history, "history", false, "Record runs in the history database")
	fs.IntVar(&cfg.historyKeep, "history-keep", 0, "Keep only the newest n recorded runs (0 keeps all)")
	fs.StringVar(&cfg.dataDir, "data-dir", "", "Data directory for run history (default: $XDG_DATA_HOME/flowlint)")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&cfg.strict, "strict", false, "Treat warnings as failures")

	fs.Usage = func() {
		printHelp(stderr, version)
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if fs.NArg() > 0 {
		cfg.flowFile = fs.Arg(0)
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(stderr, "error: expected one flow file, got %d\n", fs.NArg())
		return cfg, errors.New("too many arguments")
	}
	if cfg.jobs < 1 {
		fmt.Fprintln(stderr, "error: -jobs must be at least 1")
		return cfg, errors.New("invalid -jobs")
	}
	if cfg.historyKeep < 0 {
		fmt.Fprintln(stderr, "error: -history-keep must not be negative")
		return cfg, errors.New("invalid -history-keep")
	}
	if _, err := report.ParseFormat(cfg.format); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return cfg, err
	}
	if cfg.serverMode && cfg.mcpMode {
		fmt.Fprintln(stderr, "error: -server and -mcp are mutually exclusive")
		return cfg, errors.New("conflicting modes")
	}

	return cfg, nil
}

// app carries everything a mode needs once config and plugins are loaded.
type app struct {
	cfg     cliConfig
	file    *config.File
	plugins lint.Registry
	store   *history.Store
	logger  *log.Logger
	stdout  io.Writer
	stderr  io.Writer
}

// run dispatches to the appropriate mode and returns the exit code.
func run(ctx context.Context, cfg cliConfig, stdout, stderr io.Writer) int {
	if !cfg.serverMode && !cfg.mcpMode && cfg.flowFile == "" {
		printHelp(stderr, version)
		return exitUsage
	}

	a, err := newApp(cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitProblem
	}
	defer a.close()

	switch {
	case cfg.serverMode:
		return a.runServer(ctx)
	case cfg.mcpMode:
		return a.runMCP(ctx)
	case cfg.tuiMode:
		return a.runTUI(ctx)
	case cfg.watchMode:
		return a.runWatch(ctx)
	default:
		return a.runOnce(ctx)
	}
}

// newApp loads the config file, builds plugins, and opens history when requested.
func newApp(cfg cliConfig, stdout, stderr io.Writer) (*app, error) {
	a := &app{cfg: cfg, stdout: stdout, stderr: stderr}
	if cfg.verbose {
		a.logger = log.New(stderr, "", log.LstdFlags)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	userDir, err := defaultConfigDir()
	if err != nil {
		a.logf("config_dir=unresolved err=%v", err)
		userDir = ""
	}
	file, err := config.LoadOrDiscover(cfg.configPath, cwd, userDir)
	if err != nil {
		return nil, err
	}
	if file.Path != "" {
		a.logf("config loaded path=%s", file.Path)
	}
	a.file = file

	plugins, err := plugin.Build(file.Plugins)
	if err != nil {
		return nil, err
	}
	a.plugins = plugins

	if cfg.history {
		store, err := openHistory(cfg.dataDir)
		if err != nil {
			return nil, err
		}
		a.store = store
	}
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

func (a *app) logf(format string, args ...any) {
	if a.logger != nil {
		a.logger.Printf(format, args...)
	}
}

// openHistory opens the history database inside the resolved data directory.
func openHistory(override string) (*history.Store, error) {
	dir, err := resolveDataDir(override)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return history.Open(filepath.Join(dir, historyFileName))
}

// lintFile reads, parses, and lints the flow file.
func (a *app) lintFile(ctx context.Context) (*flow.FlowSet, *lint.Report, error) {
	data, err := os.ReadFile(a.cfg.flowFile)
	if err != nil {
		return nil, nil, err
	}
	fs, err := flow.ParseJSON(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", a.cfg.flowFile, err)
	}

	opts := []lint.Option{lint.WithConcurrency(a.cfg.jobs)}
	if a.logger != nil {
		opts = append(opts, lint.WithLogger(a.logger))
	}
	started := time.Now()
	r, err := lint.Run(ctx, fs, a.file.Lint, a.plugins, opts...)
	if err != nil {
		return nil, nil, err
	}
	a.record(r, started)
	return fs, r, nil
}

// record stores r in history when enabled, then trims history to -history-keep runs.
// Failures are warnings only.
func (a *app) record(r *lint.Report, started time.Time) {
	if a.store == nil {
		return
	}
	source := a.cfg.flowFile
	if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}
	runRec, err := a.store.Record(source, r, started)
	if err != nil {
		fmt.Fprintf(a.stderr, "warning: could not record run: %v\n", err)
		return
	}
	a.logf("run recorded run_id=%s", runRec.ID)

	if a.cfg.historyKeep > 0 {
		removed, err := a.store.Prune(a.cfg.historyKeep)
		if err != nil {
			fmt.Fprintf(a.stderr, "warning: could not prune history: %v\n", err)
			return
		}
		a.logf("history pruned keep=%d removed=%d", a.cfg.historyKeep, removed)
	}
}

func (a *app) writeReport(fs *flow.FlowSet, r *lint.Report) error {
	format, _ := report.ParseFormat(a.cfg.format)
	return report.Write(a.stdout, r, report.Options{
		Format: format,
		Color:  !a.cfg.noColor,
		Flow:   fs,
		Source: a.cfg.flowFile,
	})
}

// exitCode maps a report to the process exit code.
func exitCode(r *lint.Report, strict bool) int {
	if r.HasErrors() {
		return exitProblem
	}
	if strict && len(r.Result) > 0 {
		return exitProblem
	}
	return exitOK
}

func (a *app) runOnce(ctx context.Context) int {
	fs, r, err := a.lintFile(ctx)
	if err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return exitProblem
	}
	if err := a.writeReport(fs, r); err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return exitProblem
	}
	return exitCode(r, a.cfg.strict)
}

// runWatch lints once, then again after every change, until ctx ends. The exit code
// reflects the last completed lint.
func (a *app) runWatch(ctx context.Context) int {
	code := a.runOnce(ctx)
	fmt.Fprintf(a.stderr, "watching %s (ctrl+c to stop)\n", a.cfg.flowFile)

	err := watch.Run(ctx, a.cfg.flowFile, watch.DefaultDebounce, func() {
		fmt.Fprintf(a.stderr, "\n--- %s changed at %s\n", a.cfg.flowFile, time.Now().Format("15:04:05"))
		code = a.runOnce(ctx)
	})
	if err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return exitProblem
	}
	return code
}

// runTUI opens the diagnostics browser, feeding it fresh reports when -watch is set.
func (a *app) runTUI(ctx context.Context) int {
	fs, r, err := a.lintFile(ctx)
	if err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return exitProblem
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var updates chan tui.ReportMsg
	if a.cfg.watchMode {
		updates = make(chan tui.ReportMsg, 1)
		go func() {
			err := watch.Run(ctx, a.cfg.flowFile, watch.DefaultDebounce, func() {
				fs, r, err := a.lintFile(ctx)
				select {
				case updates <- tui.ReportMsg{FlowSet: fs, Report: r, Err: err}:
				case <-ctx.Done():
				}
			})
			if err != nil {
				a.logf("watch stopped err=%v", err)
			}
		}()
	}

	if err := tui.Run(a.cfg.flowFile, fs, r, updates); err != nil {
		fmt.Fprintf(a.stderr, "error: TUI failed: %v\n", err)
		return exitProblem
	}
	return exitCode(r, a.cfg.strict)
}

func (a *app) runServer(ctx context.Context) int {
	addr := fmt.Sprintf(":%d", a.cfg.port)
	srv := server.New(server.Config{
		Addr:        addr,
		Lint:        a.file.Lint,
		Plugins:     a.plugins,
		Concurrency: a.cfg.jobs,
		History:     a.store,
		HistoryKeep: a.cfg.historyKeep,
	})

	log.Printf("flowlint server listening addr=%s history=%t", addr, a.store != nil)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(a.stderr, "error: server failed: %v\n", err)
		return exitProblem
	}
	return exitOK
}

// runMCP serves the lint tool over stdio. Logs go to stderr since stdout is the transport.
func (a *app) runMCP(ctx context.Context) int {
	err := mcpserver.Serve(ctx, mcpserver.Options{
		Version:     version,
		Config:      a.file.Lint,
		Plugins:     a.plugins,
		Concurrency: a.cfg.jobs,
		Logger:      a.logger,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(a.stderr, "error: mcp server failed: %v\n", err)
		return exitProblem
	}
	return exitOK
}
