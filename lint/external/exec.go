// ABOUTME: ExecChecker runs an external linter process per node and parses its ESLint-style JSON output.
// ABOUTME: Code is passed on stdin and subrule params as JSON in FLOWLINT_PARAMS; supports timeout and env.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// ParamsEnvVar carries the subrule params, JSON encoded, to the checker process.
const ParamsEnvVar = "FLOWLINT_PARAMS"

// defaultCheckTimeout is used when ExecChecker.Timeout is zero.
const defaultCheckTimeout = 30 * time.Second

// maxStderrBytes caps the stderr excerpt kept on a CheckerError.
const maxStderrBytes = 4 * 1024

// CheckerError reports a checker process that failed without producing findings.
type CheckerError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CheckerError) Error() string {
	msg := fmt.Sprintf("checker %s failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *CheckerError) Unwrap() error {
	return e.Err
}

// ExecChecker runs Command with Args for each piece of code.
type ExecChecker struct {
	Command string
	Args    []string
	Timeout time.Duration
	Env     map[string]string
	Dir     string
}

// eslintResult mirrors one entry of `eslint --format json` output.
type eslintResult struct {
	Messages []struct {
		RuleID   string `json:"ruleId"`
		Severity int    `json:"severity"`
		Message  string `json:"message"`
		Line     int    `json:"line"`
		Column   int    `json:"column"`
	} `json:"messages"`
}

// Check executes the process and returns its findings. Linters exit non-zero when they
// report problems, so a failed exit with parseable output is not an error.
func (c *ExecChecker) Check(ctx context.Context, code string, params map[string]any) ([]Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Command == "" {
		return nil, &CheckerError{Err: fmt.Errorf("no command configured")}
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, c.Command, c.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = time.Second
	cmd.Dir = c.Dir
	cmd.Env = buildEnv(c.Env, string(paramsJSON))
	cmd.Stdin = strings.NewReader(code)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	if runErr != nil && cmdCtx.Err() == context.DeadlineExceeded {
		return nil, &CheckerError{
			Command: c.Command,
			Err:     fmt.Errorf("timeout after %s", timeout),
			Stderr:  truncate(stderrBuf.String()),
		}
	}

	findings, parseErr := parseESLintOutput(stdoutBuf.Bytes())
	if parseErr == nil {
		return findings, nil
	}
	if runErr != nil {
		return nil, &CheckerError{
			Command:  c.Command,
			ExitCode: extractExitCode(runErr),
			Stderr:   truncate(stderrBuf.String()),
			Err:      runErr,
		}
	}
	return nil, &CheckerError{Command: c.Command, Err: parseErr, Stderr: truncate(stderrBuf.String())}
}

// parseESLintOutput flattens the messages of every result. Empty output means no findings.
func parseESLintOutput(out []byte) ([]Finding, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}
	var results []eslintResult
	if err := json.Unmarshal(out, &results); err != nil {
		return nil, fmt.Errorf("parse checker output: %w", err)
	}
	var findings []Finding
	for _, r := range results {
		for _, m := range r.Messages {
			findings = append(findings, Finding{
				RuleID:   m.RuleID,
				Message:  m.Message,
				Line:     m.Line,
				Column:   m.Column,
				Severity: m.Severity,
			})
		}
	}
	return findings, nil
}

// buildEnv inherits the parent environment, then overlays extra and the params variable.
func buildEnv(extra map[string]string, paramsJSON string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return append(env, fmt.Sprintf("%s=%s", ParamsEnvVar, paramsJSON))
}

func truncate(s string) string {
	if len(s) <= maxStderrBytes {
		return s
	}
	return s[:maxStderrBytes]
}

// extractExitCode pulls the integer exit code from an *exec.ExitError,
// defaulting to 1 if the type doesn't match.
func extractExitCode(err error) int {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}

// killProcessGroup sends SIGKILL to the process group so linters that fork helpers
// do not outlive the timeout.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		return cmd.Process.Kill()
	}
	return syscall.Kill(-pgid, syscall.SIGKILL)
}
