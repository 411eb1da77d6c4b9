// ABOUTME: Built-in core rules as a closed enumeration dispatched by an exhaustive switch.
// ABOUTME: Each Builtin value is itself a Rule reporting under the "core" rule group.
package lint

import (
	"context"
	"fmt"

	"github.com/2389-research/flowlint/flow"
)

// CoreRuleName is the rule group reported by every built-in diagnostic.
const CoreRuleName = "core"

// Builtin identifies one of the built-in core rules.
type Builtin int

const (
	FlowSize Builtin = iota + 1
	NoFuncName
	HTTPInResp
	Loop
)

var builtinNames = map[Builtin]string{
	FlowSize:   "flowsize",
	NoFuncName: "no-func-name",
	HTTPInResp: "http-in-resp",
	Loop:       "loop",
}

// Builtins returns every built-in rule in declaration order.
func Builtins() []Builtin {
	return []Builtin{FlowSize, NoFuncName, HTTPInResp, Loop}
}

// ParseBuiltin maps a subrule name to its built-in rule.
func ParseBuiltin(name string) (Builtin, bool) {
	for _, b := range Builtins() {
		if builtinNames[b] == name {
			return b, true
		}
	}
	return 0, false
}

// String returns the subrule name of the built-in.
func (b Builtin) String() string {
	if name, ok := builtinNames[b]; ok {
		return name
	}
	return fmt.Sprintf("Builtin(%d)", int(b))
}

// Name returns the rule group shared by all built-ins.
func (b Builtin) Name() string { return CoreRuleName }

// Check runs the built-in against fs.
func (b Builtin) Check(_ context.Context, fs *flow.FlowSet, sub Subrule, _ Registry) ([]Diagnostic, error) {
	switch b {
	case FlowSize:
		params, err := flowSizeParamsFrom(sub)
		if err != nil {
			return nil, err
		}
		return checkFlowSize(fs, params), nil
	case NoFuncName:
		return checkNoFuncName(fs), nil
	case HTTPInResp:
		return checkHTTPInResp(fs), nil
	case Loop:
		return checkLoop(fs), nil
	default:
		return nil, fmt.Errorf("unhandled built-in rule %s", b)
	}
}

// ValidateParams rejects parameters the built-in cannot run with.
func (b Builtin) ValidateParams(sub Subrule) error {
	switch b {
	case FlowSize:
		_, err := flowSizeParamsFrom(sub)
		return err
	case NoFuncName, HTTPInResp, Loop:
		return nil
	default:
		return fmt.Errorf("unhandled built-in rule %s", b)
	}
}

// coreDiagnostic builds a warn-level diagnostic under the core rule group.
func coreDiagnostic(name, message string, ids ...string) Diagnostic {
	return Diagnostic{
		Rule:     CoreRuleName,
		IDs:      append([]string{}, ids...),
		Name:     name,
		Severity: SeverityWarn,
		Message:  message,
	}
}
