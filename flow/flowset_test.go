// ABOUTME: Tests for FlowSet indexing: tab grouping, adjacency, and link out/in edge resolution.
// ABOUTME: Verifies dangling references and asymmetric link metadata are absorbed without errors.
package flow

import (
	"reflect"
	"testing"
)

// mustParse builds a FlowSet from raw records or fails the test.
func mustParse(t *testing.T, records ...map[string]any) *FlowSet {
	t.Helper()
	fs, err := ParseFlow(records)
	if err != nil {
		t.Fatalf("parse flow: %v", err)
	}
	return fs
}

// node is a terse constructor for raw records used across the package tests.
func node(id, typ, z string, wires ...[]string) map[string]any {
	ports := make([]any, 0, len(wires))
	for _, port := range wires {
		targets := make([]any, 0, len(port))
		for _, target := range port {
			targets = append(targets, target)
		}
		ports = append(ports, targets)
	}
	return map[string]any{"id": id, "type": typ, "z": z, "wires": ports}
}

// link builds a link in/out record with the given pairing ids.
func link(id, typ, z string, links []string, wires ...[]string) map[string]any {
	rec := node(id, typ, z, wires...)
	peers := make([]any, 0, len(links))
	for _, l := range links {
		peers = append(peers, l)
	}
	rec["links"] = peers
	return rec
}

func TestFlowSet_TabGrouping(t *testing.T) {
	fs := mustParse(t,
		map[string]any{"id": "t1", "type": "tab", "label": "One"},
		node("a", "comment", "t1"),
		node("b", "comment", "t2"),
		node("c", "comment", "t1"),
		map[string]any{"id": "cfg", "type": "mqtt-broker"},
	)

	if got := fs.TabIDs(); !reflect.DeepEqual(got, []string{"t1", "t2"}) {
		t.Errorf("expected tabs [t1 t2], got %v", got)
	}

	var ids []string
	for _, n := range fs.NodesByTab("t1") {
		ids = append(ids, n.ID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "c"}) {
		t.Errorf("expected t1 members [a c], got %v", ids)
	}

	t1, _ := fs.Tab("t1")
	if t1.Descriptor == nil || t1.Label() != "One" {
		t.Errorf("expected t1 descriptor with label One, got %+v", t1.Descriptor)
	}
	t2, _ := fs.Tab("t2")
	if t2.Descriptor != nil {
		t.Error("expected anonymous tab t2 to have no descriptor")
	}
	if fs.NodesByTab("missing") != nil {
		t.Error("expected nil for unknown tab")
	}
}

func TestFlowSet_AllNodesInputOrder(t *testing.T) {
	fs := mustParse(t, node("z", "comment", "t"), node("a", "comment", "t"), node("m", "comment", "t"))
	var ids []string
	for _, n := range fs.AllNodes() {
		ids = append(ids, n.ID)
	}
	if !reflect.DeepEqual(ids, []string{"z", "a", "m"}) {
		t.Errorf("expected input order, got %v", ids)
	}
}

func TestFlowSet_OutEdgesDeduplicated(t *testing.T) {
	fs := mustParse(t,
		node("a", "function", "t", []string{"b", "c"}, []string{"b"}),
		node("b", "function", "t"),
		node("c", "function", "t"),
	)
	if got := fs.OutEdges("a"); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("expected [b c], got %v", got)
	}
	if got := fs.InEdges("b"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("expected [a], got %v", got)
	}
}

func TestFlowSet_LinkResolution(t *testing.T) {
	tests := []struct {
		name    string
		records []map[string]any
		want    []string
	}{
		{
			name: "mutual pair",
			records: []map[string]any{
				link("lo", "link out", "t1", []string{"li"}),
				link("li", "link in", "t2", []string{"lo"}),
			},
			want: []string{"li"},
		},
		{
			name: "asymmetric reference ignored",
			records: []map[string]any{
				link("lo", "link out", "t1", []string{"li"}),
				link("li", "link in", "t1", nil),
			},
			want: nil,
		},
		{
			name: "stale reference ignored",
			records: []map[string]any{
				link("lo", "link out", "t1", []string{"gone"}),
			},
			want: nil,
		},
		{
			name: "target is not a link in",
			records: []map[string]any{
				link("lo", "link out", "t1", []string{"fn"}),
				link("fn", "function", "t1", []string{"lo"}),
			},
			want: nil,
		},
		{
			name: "fan out to several link in nodes",
			records: []map[string]any{
				link("lo", "link out", "t1", []string{"li1", "li2", "li1"}),
				link("li1", "link in", "t1", []string{"lo"}),
				link("li2", "link in", "t3", []string{"lo", "other"}),
			},
			want: []string{"li1", "li2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := mustParse(t, tt.records...)
			got := fs.LinkTargets("lo")
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected link targets %v, got %v", tt.want, got)
			}
			if !reflect.DeepEqual(fs.OutEdges("lo"), tt.want) {
				t.Errorf("expected out edges %v, got %v", tt.want, fs.OutEdges("lo"))
			}
		})
	}
}

func TestFlowSet_LinkInDoesNotEmitLinkEdges(t *testing.T) {
	fs := mustParse(t,
		link("lo", "link out", "t1", []string{"li"}),
		link("li", "link in", "t1", []string{"lo"}),
	)
	if got := fs.OutEdges("li"); len(got) != 0 {
		t.Errorf("expected link in to have no out edges, got %v", got)
	}
	if got := fs.InEdges("li"); !reflect.DeepEqual(got, []string{"lo"}) {
		t.Errorf("expected li to be fed by lo, got %v", got)
	}
}

func TestFlowSet_DanglingWireKeptInOutEdges(t *testing.T) {
	fs := mustParse(t, node("a", "function", "t", []string{"ghost"}))
	if got := fs.OutEdges("a"); !reflect.DeepEqual(got, []string{"ghost"}) {
		t.Errorf("expected dangling target in out edges, got %v", got)
	}
	if _, ok := fs.Node("ghost"); ok {
		t.Error("dangling target must not become a node")
	}
}
