// ABOUTME: The rule contract: the Rule interface, subrule configuration entries, and the plugin registry.
// ABOUTME: Subrules decode from flat objects where every key except "name" is a rule parameter.
package lint

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2389-research/flowlint/flow"
)

// Rule is the interface every built-in and plugin rule implements.
type Rule interface {
	// Name is the owning rule group reported in Diagnostic.Rule.
	Name() string
	// Check inspects the flow and returns diagnostics in a reproducible order.
	// It must not modify fs. plugins is the registry the run was started with.
	Check(ctx context.Context, fs *flow.FlowSet, sub Subrule, plugins Registry) ([]Diagnostic, error)
}

// ParamValidator is implemented by rules that can reject a subrule's parameters
// before any rule in the run executes.
type ParamValidator interface {
	ValidateParams(sub Subrule) error
}

// Registry maps subrule names to plugin-supplied rules.
type Registry map[string]Rule

// Subrule is one configured rule instance.
type Subrule struct {
	Name   string
	Params map[string]any
}

// Config is an ordered list of subrules to run.
type Config struct {
	Subrules []Subrule `json:"subrules"`
}

// NewSubrule builds a Subrule from a flat record such as one decoded from YAML.
func NewSubrule(rec map[string]any) (Subrule, error) {
	name, ok := rec["name"].(string)
	if !ok || name == "" {
		return Subrule{}, fmt.Errorf("subrule is missing a name")
	}
	params := make(map[string]any, len(rec))
	for k, v := range rec {
		if k == "name" {
			continue
		}
		params[k] = v
	}
	return Subrule{Name: name, Params: params}, nil
}

// UnmarshalJSON decodes {"name": ..., <params>...}.
func (s *Subrule) UnmarshalJSON(data []byte) error {
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	sub, err := NewSubrule(rec)
	if err != nil {
		return err
	}
	*s = sub
	return nil
}

// MarshalJSON encodes the subrule back into its flat form.
func (s Subrule) MarshalJSON() ([]byte, error) {
	rec := make(map[string]any, len(s.Params)+1)
	for k, v := range s.Params {
		rec[k] = v
	}
	rec["name"] = s.Name
	return json.Marshal(rec)
}

// DecodeParams copies the subrule parameters into out, a pointer to a struct with json tags.
func (s Subrule) DecodeParams(out any) error {
	data, err := json.Marshal(s.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

// Lookup resolves a subrule name, checking built-ins before the plugin registry.
func Lookup(name string, plugins Registry) (Rule, bool) {
	if b, ok := ParseBuiltin(name); ok {
		return b, true
	}
	if r, ok := plugins[name]; ok && r != nil {
		return r, true
	}
	return nil, false
}
