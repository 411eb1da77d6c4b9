// ABOUTME: Check functions for the built-in rules: flowsize, no-func-name, http-in-resp, and loop.
// ABOUTME: All read the FlowSet through its query surface and emit warn-level core diagnostics.
package lint

import "github.com/2389-research/flowlint/flow"

// checkFlowSize flags every tab with more member nodes than the configured maximum.
func checkFlowSize(fs *flow.FlowSet, p FlowSizeParams) []Diagnostic {
	var diags []Diagnostic
	for _, ts := range fs.TabSizes() {
		if ts.Count > p.MaxSize {
			diags = append(diags, coreDiagnostic("flowsize", "too large flow size", ts.TabID))
		}
	}
	return diags
}

// checkNoFuncName flags function nodes without a name.
func checkNoFuncName(fs *flow.FlowSet) []Diagnostic {
	var diags []Diagnostic
	for _, n := range fs.NodesOfType(flow.TypeFunction) {
		if n.Name == "" {
			diags = append(diags, coreDiagnostic("no-func-name", "function node has no name", n.ID))
		}
	}
	return diags
}

func isHTTPIn(n *flow.Node) bool       { return n.Type == flow.TypeHTTPIn }
func isHTTPResponse(n *flow.Node) bool { return n.Type == flow.TypeHTTPResponse }

// checkHTTPInResp flags http in nodes that reach no http response node, and http
// response nodes that no http in node reaches. Link pairs count as wires.
func checkHTTPInResp(fs *flow.FlowSet) []Diagnostic {
	var diags []Diagnostic
	for _, n := range fs.AllNodes() {
		switch n.Type {
		case flow.TypeHTTPIn:
			if !fs.ReachesAny(n.ID, isHTTPResponse) {
				diags = append(diags, coreDiagnostic("dangling-http-in", "dangling http-in node", n.ID))
			}
		case flow.TypeHTTPResponse:
			if !fs.ReachedFromAny(n.ID, isHTTPIn) {
				diags = append(diags, coreDiagnostic("dangling-http-resp", "dangling http-response node", n.ID))
			}
		}
	}
	return diags
}

// canCarryWire excludes nodes that never forward messages along wires.
func canCarryWire(n *flow.Node) bool {
	return !n.IsTabDescriptor() && n.Type != flow.TypeComment
}

// checkLoop flags strongly connected components that can pass a message around forever.
// Link nodes are pass-throughs: a component needs two distinct non-link members, or a
// single non-link member that feeds itself directly or through link nodes.
func checkLoop(fs *flow.FlowSet) []Diagnostic {
	var diags []Diagnostic
	for _, cycle := range fs.FindCycles(canCarryWire) {
		processing := 0
		for _, id := range cycle {
			if n, ok := fs.Node(id); ok && !n.IsLink() {
				processing++
			}
		}
		if processing == 0 {
			continue
		}
		diags = append(diags, coreDiagnostic("loop", "possible infinite loop detected", cycle...))
	}
	return diags
}
