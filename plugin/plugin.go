// ABOUTME: Builds the lint plugin registry from configured external checkers.
// ABOUTME: Each plugin entry becomes an external.Adapter around an ExecChecker process.
package plugin

import (
	"fmt"

	"github.com/2389-research/flowlint/config"
	"github.com/2389-research/flowlint/lint"
	"github.com/2389-research/flowlint/lint/external"
)

// Build creates one rule per plugin entry. Duplicate names and names that collide with
// built-in rules are rejected.
func Build(entries []config.Plugin) (lint.Registry, error) {
	reg := make(lint.Registry, len(entries))
	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("plugin %d: missing name", i)
		}
		if _, ok := lint.ParseBuiltin(e.Name); ok {
			return nil, fmt.Errorf("plugin %q: name is reserved by a built-in rule", e.Name)
		}
		if _, dup := reg[e.Name]; dup {
			return nil, fmt.Errorf("plugin %q: duplicate name", e.Name)
		}
		reg[e.Name] = &external.Adapter{
			PluginName: e.Name,
			NodeTypes:  append([]string(nil), e.NodeTypes...),
			Checker: &external.ExecChecker{
				Command: e.Command,
				Args:    append([]string(nil), e.Args...),
				Timeout: e.Timeout,
				Env:     e.Env,
			},
		}
	}
	return reg, nil
}

// Merge combines registries; later registries win on name collisions.
func Merge(regs ...lint.Registry) lint.Registry {
	out := make(lint.Registry)
	for _, reg := range regs {
		for name, rule := range reg {
			out[name] = rule
		}
	}
	return out
}
