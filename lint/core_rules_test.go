// ABOUTME: Table-driven tests for the built-in core rules run through the dispatcher.
// ABOUTME: Covers flowsize, no-func-name, http-in-resp, and loop including link-node bridges.
package lint

import (
	"context"
	"reflect"
	"testing"

	"github.com/2389-research/flowlint/flow"
)

// parseFlow builds a FlowSet from raw records or fails the test.
func parseFlow(t *testing.T, records ...map[string]any) *flow.FlowSet {
	t.Helper()
	fs, err := flow.ParseFlow(records)
	if err != nil {
		t.Fatalf("parse flow: %v", err)
	}
	return fs
}

// rec builds a raw node record; wires are given as ports of target ids.
func rec(id, typ, z string, wires ...[]string) map[string]any {
	ports := make([]any, 0, len(wires))
	for _, port := range wires {
		targets := make([]any, 0, len(port))
		for _, target := range port {
			targets = append(targets, target)
		}
		ports = append(ports, targets)
	}
	return map[string]any{"id": id, "type": typ, "x": 0, "y": 0, "z": z, "wires": ports}
}

// withField returns a copy of r with key set to value.
func withField(r map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[key] = value
	return out
}

// links sets the links field of a link in/out record.
func links(r map[string]any, ids ...string) map[string]any {
	peers := make([]any, 0, len(ids))
	for _, id := range ids {
		peers = append(peers, id)
	}
	return withField(r, "links", peers)
}

// runSubrule runs a single subrule and returns its diagnostics.
func runSubrule(t *testing.T, fs *flow.FlowSet, name string, params map[string]any) []Diagnostic {
	t.Helper()
	cfg := Config{Subrules: []Subrule{{Name: name, Params: params}}}
	report, err := Run(context.Background(), fs, cfg, nil)
	if err != nil {
		t.Fatalf("run %s: %v", name, err)
	}
	return report.Result
}

// hasDiag reports whether diags contains exactly d.
func hasDiag(diags []Diagnostic, d Diagnostic) bool {
	for _, got := range diags {
		if reflect.DeepEqual(got, d) {
			return true
		}
	}
	return false
}

// countDiags counts diagnostics with the given check name.
func countDiags(diags []Diagnostic, name string) int {
	n := 0
	for _, d := range diags {
		if d.Name == name {
			n++
		}
	}
	return n
}

func TestCoreRules_EmptyFlow(t *testing.T) {
	fs := parseFlow(t)
	for _, b := range Builtins() {
		params := map[string]any{}
		if b == FlowSize {
			params["maxSize"] = 10
		}
		if diags := runSubrule(t, fs, b.String(), params); len(diags) != 0 {
			t.Errorf("%s: expected no diagnostics on empty flow, got %v", b, diags)
		}
	}
}

func TestFlowSize(t *testing.T) {
	tests := []struct {
		name    string
		records []map[string]any
		maxSize int
		want    []Diagnostic
	}{
		{
			name: "warns large flow",
			records: []map[string]any{
				rec("n1", "comment", "1"),
				rec("n2", "comment", "1"),
			},
			maxSize: 1,
			want: []Diagnostic{{
				Rule: "core", IDs: []string{"1"}, Name: "flowsize", Severity: "warn", Message: "too large flow size",
			}},
		},
		{
			name: "multiple small flows",
			records: []map[string]any{
				rec("n1", "comment", "1"),
				rec("n2", "comment", "2"),
			},
			maxSize: 1,
			want:    nil,
		},
		{
			name: "exactly max size",
			records: []map[string]any{
				rec("n1", "comment", "1"),
				rec("n2", "comment", "1"),
				rec("n3", "comment", "1"),
			},
			maxSize: 3,
			want:    nil,
		},
		{
			name: "tab descriptor not counted",
			records: []map[string]any{
				{"id": "1", "type": "tab", "label": "Flow 1"},
				rec("n1", "comment", "1"),
			},
			maxSize: 1,
			want:    nil,
		},
		{
			name: "one diagnostic per offending tab in observed order",
			records: []map[string]any{
				rec("a1", "comment", "b"),
				rec("b1", "comment", "a"),
				rec("a2", "comment", "b"),
				rec("b2", "comment", "a"),
				rec("c1", "comment", "c"),
			},
			maxSize: 1,
			want: []Diagnostic{
				{Rule: "core", IDs: []string{"b"}, Name: "flowsize", Severity: "warn", Message: "too large flow size"},
				{Rule: "core", IDs: []string{"a"}, Name: "flowsize", Severity: "warn", Message: "too large flow size"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := parseFlow(t, tt.records...)
			got := runSubrule(t, fs, "flowsize", map[string]any{"maxSize": tt.maxSize})
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFlowSize_BoundaryPlusOne(t *testing.T) {
	for maxSize := 1; maxSize <= 5; maxSize++ {
		records := make([]map[string]any, 0, maxSize+1)
		for i := 0; i <= maxSize; i++ {
			records = append(records, rec(string(rune('a'+i)), "comment", "tab"))
		}
		fs := parseFlow(t, records...)
		if n := countDiags(runSubrule(t, fs, "flowsize", map[string]any{"maxSize": maxSize}), "flowsize"); n != 1 {
			t.Errorf("maxSize=%d: expected exactly one diagnostic, got %d", maxSize, n)
		}
		fs = parseFlow(t, records[:maxSize]...)
		if n := countDiags(runSubrule(t, fs, "flowsize", map[string]any{"maxSize": maxSize}), "flowsize"); n != 0 {
			t.Errorf("maxSize=%d: expected no diagnostic at the limit, got %d", maxSize, n)
		}
	}
}

func TestNoFuncName(t *testing.T) {
	tests := []struct {
		name   string
		record map[string]any
		want   bool
	}{
		{"empty name", withField(rec("n1", "function", "0"), "name", ""), true},
		{"absent name", rec("n1", "function", "0"), true},
		{"named", withField(rec("n1", "function", "0"), "name", "name"), false},
		{"non-function without name", rec("n1", "change", "0"), false},
		{"non-function with empty name", withField(rec("n1", "template", "0"), "name", ""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := parseFlow(t, tt.record)
			got := runSubrule(t, fs, "no-func-name", nil)
			want := Diagnostic{
				Rule: "core", IDs: []string{"n1"}, Name: "no-func-name", Severity: "warn",
				Message: "function node has no name",
			}
			if tt.want && !hasDiag(got, want) {
				t.Errorf("expected %v, got %v", want, got)
			}
			if !tt.want && len(got) != 0 {
				t.Errorf("expected no diagnostics, got %v", got)
			}
		})
	}
}

var (
	danglingIn = func(id string) Diagnostic {
		return Diagnostic{Rule: "core", IDs: []string{id}, Name: "dangling-http-in", Severity: "warn", Message: "dangling http-in node"}
	}
	danglingResp = func(id string) Diagnostic {
		return Diagnostic{Rule: "core", IDs: []string{id}, Name: "dangling-http-resp", Severity: "warn", Message: "dangling http-response node"}
	}
)

func TestHTTPInResp(t *testing.T) {
	tests := []struct {
		name    string
		records []map[string]any
		want    []Diagnostic
	}{
		{
			name:    "dangling http in",
			records: []map[string]any{rec("n1", "http in", "f1")},
			want:    []Diagnostic{danglingIn("n1")},
		},
		{
			name:    "dangling http response",
			records: []map[string]any{rec("n1", "http response", "f1")},
			want:    []Diagnostic{danglingResp("n1")},
		},
		{
			name: "directly connected",
			records: []map[string]any{
				rec("n1", "http in", "f1", []string{"n2"}),
				rec("n2", "http response", "f1"),
			},
			want: nil,
		},
		{
			name: "transitively connected",
			records: []map[string]any{
				rec("n1", "http in", "f1", []string{"n2"}),
				rec("n2", "function", "f1", []string{}, []string{"n3"}),
				rec("n3", "change", "f1", []string{"n4"}),
				rec("n4", "http response", "f1"),
			},
			want: nil,
		},
		{
			name: "both disconnected",
			records: []map[string]any{
				rec("n1", "http in", "f1"),
				rec("n2", "http response", "f1"),
			},
			want: []Diagnostic{danglingIn("n1"), danglingResp("n2")},
		},
		{
			name: "connected but badly positioned",
			records: []map[string]any{
				rec("n1", "http in", "f1", []string{"n2"}),
				rec("n2", "function", "f1"),
				rec("n3", "function", "f1", []string{"n2", "n4"}),
				rec("n4", "http response", "f1"),
			},
			want: []Diagnostic{danglingIn("n1"), danglingResp("n4")},
		},
		{
			name: "connected via link nodes",
			records: []map[string]any{
				rec("n1", "http in", "f1", []string{"n2"}),
				links(rec("n2", "link out", "f1"), "n3"),
				links(rec("n3", "link in", "f1", []string{"n4"}), "n2"),
				rec("n4", "http response", "f1"),
			},
			want: nil,
		},
		{
			name: "connected via link nodes across tabs",
			records: []map[string]any{
				rec("n1", "http in", "f1", []string{"n2"}),
				links(rec("n2", "link out", "f1"), "n3"),
				links(rec("n3", "link in", "f2", []string{"n4"}), "n2"),
				rec("n4", "http response", "f2"),
			},
			want: nil,
		},
		{
			name: "one-sided link reference does not connect",
			records: []map[string]any{
				rec("n1", "http in", "f1", []string{"n2"}),
				links(rec("n2", "link out", "f1"), "n3"),
				rec("n3", "link in", "f1", []string{"n4"}),
				rec("n4", "http response", "f1"),
			},
			want: []Diagnostic{danglingIn("n1"), danglingResp("n4")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := parseFlow(t, tt.records...)
			got := runSubrule(t, fs, "http-in-resp", nil)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLoop(t *testing.T) {
	loopDiag := func(ids ...string) Diagnostic {
		return Diagnostic{Rule: "core", IDs: ids, Name: "loop", Severity: "warn", Message: "possible infinite loop detected"}
	}

	tests := []struct {
		name    string
		records []map[string]any
		want    []Diagnostic
	}{
		{
			name: "mutual wiring",
			records: []map[string]any{
				rec("n1", "function", "f1", []string{"n2"}),
				rec("n2", "function", "f1", []string{"n1"}),
			},
			want: []Diagnostic{loopDiag("n1", "n2")},
		},
		{
			name: "loop using link nodes",
			records: []map[string]any{
				rec("n1", "function", "f1", []string{"n2"}),
				links(rec("n2", "link out", "f1"), "n3"),
				links(rec("n3", "link in", "f1", []string{"n1"}), "n2"),
			},
			want: []Diagnostic{loopDiag("n1", "n2", "n3")},
		},
		{
			name: "self loop",
			records: []map[string]any{
				rec("n1", "function", "f1", []string{"n1"}),
			},
			want: []Diagnostic{loopDiag("n1")},
		},
		{
			name: "acyclic chain",
			records: []map[string]any{
				rec("n1", "function", "f1", []string{"n2"}),
				rec("n2", "function", "f1", []string{"n3"}),
				rec("n3", "function", "f1"),
			},
			want: nil,
		},
		{
			name: "link-only cycle has no processing node",
			records: []map[string]any{
				links(rec("lo", "link out", "f1"), "li"),
				links(rec("li", "link in", "f1", []string{"lo"}), "lo"),
			},
			want: nil,
		},
		{
			name: "two independent loops",
			records: []map[string]any{
				rec("a", "function", "f1", []string{"b"}),
				rec("b", "function", "f1", []string{"a"}),
				rec("c", "change", "f2", []string{"d"}),
				rec("d", "switch", "f2", []string{}, []string{"c"}),
			},
			want: []Diagnostic{loopDiag("a", "b"), loopDiag("c", "d")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := parseFlow(t, tt.records...)
			got := runSubrule(t, fs, "loop", nil)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
