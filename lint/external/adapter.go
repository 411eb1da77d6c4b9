// ABOUTME: Adapter that turns an external script checker into a lint.Rule over script-bearing nodes.
// ABOUTME: Findings become warn diagnostics; a failing checker yields one error diagnostic for that node.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/2389-research/flowlint/flow"
	"github.com/2389-research/flowlint/lint"
)

// Finding is one message reported by an external checker for a piece of code.
type Finding struct {
	RuleID   string
	Message  string
	Line     int
	Column   int
	Severity int
}

// Checker inspects one node's embedded code with the subrule's parameters.
type Checker interface {
	Check(ctx context.Context, code string, params map[string]any) ([]Finding, error)
}

// CheckerFunc adapts a plain function to the Checker interface.
type CheckerFunc func(ctx context.Context, code string, params map[string]any) ([]Finding, error)

// Check calls f.
func (f CheckerFunc) Check(ctx context.Context, code string, params map[string]any) ([]Finding, error) {
	return f(ctx, code, params)
}

// Adapter exposes a Checker as a plugin rule named PluginName.
type Adapter struct {
	PluginName string
	Checker    Checker
	// NodeTypes lists the node types whose Func is checked. Empty means function nodes only.
	NodeTypes []string
}

// Name returns the plugin name, used as both the rule group and the check name.
func (a *Adapter) Name() string { return a.PluginName }

// ValidateParams rejects parameters that cannot be handed to a checker as JSON.
func (a *Adapter) ValidateParams(sub lint.Subrule) error {
	if _, err := json.Marshal(sub.Params); err != nil {
		return fmt.Errorf("params are not JSON encodable: %w", err)
	}
	return nil
}

// Check runs the checker over every script-bearing node in input order. Nodes with
// no code are skipped. Cancellation aborts the run instead of becoming a diagnostic.
func (a *Adapter) Check(ctx context.Context, fs *flow.FlowSet, sub lint.Subrule, _ lint.Registry) ([]lint.Diagnostic, error) {
	if a.Checker == nil {
		return nil, fmt.Errorf("plugin %s has no checker", a.PluginName)
	}

	var diags []lint.Diagnostic
	for _, n := range fs.AllNodes() {
		if !a.checks(n.Type) || strings.TrimSpace(n.Func) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		findings, err := a.Checker.Check(ctx, n.Func, sub.Params)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			diags = append(diags, a.diagnostic(n.ID, lint.SeverityError, err.Error()))
			continue
		}
		for _, f := range findings {
			diags = append(diags, a.diagnostic(n.ID, lint.SeverityWarn, f.Message))
		}
	}
	return diags, nil
}

func (a *Adapter) checks(typ string) bool {
	if len(a.NodeTypes) == 0 {
		return typ == flow.TypeFunction
	}
	for _, t := range a.NodeTypes {
		if t == typ {
			return true
		}
	}
	return false
}

func (a *Adapter) diagnostic(nodeID string, sev lint.Severity, message string) lint.Diagnostic {
	return lint.Diagnostic{
		Rule:     a.PluginName,
		IDs:      []string{nodeID},
		Name:     a.PluginName,
		Severity: sev,
		Message:  message,
	}
}
