// ABOUTME: The dispatcher: resolves configured subrules, runs them against one FlowSet, and merges results.
// ABOUTME: Resolution fails fast before any rule runs; parallel runs still merge in declaration order.
package lint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/2389-research/flowlint/flow"
)

// Option configures a Run.
type Option func(*runOptions)

type runOptions struct {
	concurrency int
	logger      *log.Logger
}

// WithConcurrency runs up to n subrules at once. Values below 2 run sequentially.
func WithConcurrency(n int) Option {
	return func(o *runOptions) {
		o.concurrency = n
	}
}

// WithLogger logs one line per executed subrule.
func WithLogger(l *log.Logger) Option {
	return func(o *runOptions) {
		o.logger = l
	}
}

// DefaultConfig enables every built-in rule with a flowsize limit of 100 nodes per tab.
func DefaultConfig() Config {
	return Config{Subrules: []Subrule{
		{Name: FlowSize.String(), Params: map[string]any{"maxSize": 100}},
		{Name: NoFuncName.String(), Params: map[string]any{}},
		{Name: HTTPInResp.String(), Params: map[string]any{}},
		{Name: Loop.String(), Params: map[string]any{}},
	}}
}

// WithDefaults returns DefaultConfig when c has no subrules key (nil Subrules), and
// c unchanged otherwise. An explicit empty list stays empty and runs nothing.
func (c Config) WithDefaults() Config {
	if c.Subrules == nil {
		return DefaultConfig()
	}
	return c
}

// resolved pairs a subrule with the rule that implements it.
type resolved struct {
	sub  Subrule
	rule Rule
}

// Resolve maps every subrule in cfg to a rule and validates its parameters.
func Resolve(cfg Config, plugins Registry) ([]Rule, error) {
	res, err := resolveAll(cfg, plugins)
	if err != nil {
		return nil, err
	}
	rules := make([]Rule, len(res))
	for i, r := range res {
		rules[i] = r.rule
	}
	return rules, nil
}

func resolveAll(cfg Config, plugins Registry) ([]resolved, error) {
	res := make([]resolved, 0, len(cfg.Subrules))
	for i, sub := range cfg.Subrules {
		rule, ok := Lookup(sub.Name, plugins)
		if !ok {
			return nil, &UnknownRuleError{Name: sub.Name, Index: i}
		}
		if pv, ok := rule.(ParamValidator); ok {
			if err := pv.ValidateParams(sub); err != nil {
				return nil, &InvalidParamsError{Name: sub.Name, Index: i, Err: err}
			}
		}
		res = append(res, resolved{sub: sub, rule: rule})
	}
	return res, nil
}

// Run executes every subrule of cfg against fs and returns the merged report.
// Configuration errors and rule failures abort the run without a partial report.
func Run(ctx context.Context, fs *flow.FlowSet, cfg Config, plugins Registry, opts ...Option) (*Report, error) {
	if fs == nil {
		return nil, errors.New("lint: nil flow set")
	}

	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	res, err := resolveAll(cfg, plugins)
	if err != nil {
		return nil, err
	}

	results := make([][]Diagnostic, len(res))
	runOne := func(ctx context.Context, i int) error {
		start := time.Now()
		diags, err := res[i].rule.Check(ctx, fs, res[i].sub, plugins)
		if err != nil {
			return fmt.Errorf("rule %q: %w", res[i].sub.Name, err)
		}
		results[i] = diags
		if o.logger != nil {
			o.logger.Printf("lint subrule=%s group=%s diagnostics=%d duration=%s",
				res[i].sub.Name, res[i].rule.Name(), len(diags), time.Since(start).Round(time.Microsecond))
		}
		return nil
	}

	if o.concurrency < 2 {
		for i := range res {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := runOne(ctx, i); err != nil {
				return nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.concurrency)
		for i := range res {
			g.Go(func() error {
				return runOne(gctx, i)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	report := &Report{Result: []Diagnostic{}}
	for _, diags := range results {
		report.Result = append(report.Result, diags...)
	}
	return report, nil
}
