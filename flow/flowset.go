// ABOUTME: FlowSet is the immutable graph built from one flow export: id index, tab groups, and adjacency.
// ABOUTME: Link out/in pairs are resolved into explicit edges at construction so traversal never special-cases types.
package flow

// FlowSet indexes all nodes of one flow export. It is read-only once built and safe
// for concurrent readers.
type FlowSet struct {
	nodes  []*Node
	byID   map[string]*Node
	tabIDs []string
	tabs   map[string]*Tab

	out   map[string][]string // wire targets followed by link edges
	in    map[string][]string // reverse of out
	links map[string][]string // resolved link out -> link in edges only
}

// newFlowSet builds the indices in two passes: node and tab indexing, then adjacency
// with link resolution. Duplicate ids keep only the last record.
func newFlowSet(parsed []*Node) *FlowSet {
	last := make(map[string]int, len(parsed))
	for i, n := range parsed {
		last[n.ID] = i
	}

	fs := &FlowSet{
		nodes: make([]*Node, 0, len(last)),
		byID:  make(map[string]*Node, len(last)),
		tabs:  make(map[string]*Tab),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
		links: make(map[string][]string),
	}

	for i, n := range parsed {
		if last[n.ID] != i {
			continue
		}
		fs.nodes = append(fs.nodes, n)
		fs.byID[n.ID] = n
		if n.Z != "" {
			fs.tab(n.Z).Nodes = append(fs.tab(n.Z).Nodes, n)
		}
	}

	// Tabs are keyed by observed z values; a descriptor with no members is not a group.
	for _, n := range fs.nodes {
		if n.Type != TypeTab && n.Type != TypeSubflow {
			continue
		}
		if t, ok := fs.tabs[n.ID]; ok {
			t.Descriptor = n
		}
	}

	fs.resolveLinks()
	fs.buildAdjacency()
	return fs
}

// tab returns the group for id, creating it in first-observed order.
func (fs *FlowSet) tab(id string) *Tab {
	t, ok := fs.tabs[id]
	if !ok {
		t = &Tab{ID: id}
		fs.tabs[id] = t
		fs.tabIDs = append(fs.tabIDs, id)
	}
	return t
}

// resolveLinks adds an edge from each link out node to every link in node that
// confirms the pairing by listing the link out node back. One-sided or stale
// references are ignored.
func (fs *FlowSet) resolveLinks() {
	for _, n := range fs.nodes {
		if n.Type != TypeLinkOut {
			continue
		}
		seen := make(map[string]bool)
		for _, target := range n.Links {
			if seen[target] {
				continue
			}
			seen[target] = true
			peer, ok := fs.byID[target]
			if !ok || peer.Type != TypeLinkIn {
				continue
			}
			if !contains(peer.Links, n.ID) {
				continue
			}
			fs.links[n.ID] = append(fs.links[n.ID], peer.ID)
		}
	}
}

// buildAdjacency merges wire edges and link edges into the forward and reverse indices.
func (fs *FlowSet) buildAdjacency() {
	for _, n := range fs.nodes {
		targets := n.WireTargets()
		for _, id := range fs.links[n.ID] {
			if !contains(targets, id) {
				targets = append(targets, id)
			}
		}
		if len(targets) == 0 {
			continue
		}
		fs.out[n.ID] = targets
		for _, id := range targets {
			fs.in[id] = append(fs.in[id], n.ID)
		}
	}
}

// Node returns the node with the given id.
func (fs *FlowSet) Node(id string) (*Node, bool) {
	n, ok := fs.byID[id]
	return n, ok
}

// AllNodes returns every node in input order.
func (fs *FlowSet) AllNodes() []*Node {
	return append([]*Node(nil), fs.nodes...)
}

// Len returns the number of distinct nodes.
func (fs *FlowSet) Len() int {
	return len(fs.nodes)
}

// NodesOfType returns the nodes with the given type in input order.
func (fs *FlowSet) NodesOfType(typ string) []*Node {
	var result []*Node
	for _, n := range fs.nodes {
		if n.Type == typ {
			result = append(result, n)
		}
	}
	return result
}

// TabIDs returns every distinct z value seen, in first-observed order.
func (fs *FlowSet) TabIDs() []string {
	return append([]string(nil), fs.tabIDs...)
}

// Tab returns the tab group for id.
func (fs *FlowSet) Tab(id string) (*Tab, bool) {
	t, ok := fs.tabs[id]
	return t, ok
}

// NodesByTab returns the nodes whose z equals tabID, in input order.
func (fs *FlowSet) NodesByTab(tabID string) []*Node {
	t, ok := fs.tabs[tabID]
	if !ok {
		return nil
	}
	return append([]*Node(nil), t.Nodes...)
}

// OutEdges returns the successors of id: wire targets in port order, then link edges.
// Targets may name nodes that are not in the set.
func (fs *FlowSet) OutEdges(id string) []string {
	return append([]string(nil), fs.out[id]...)
}

// InEdges returns the predecessors of id over wire and link edges.
func (fs *FlowSet) InEdges(id string) []string {
	return append([]string(nil), fs.in[id]...)
}

// LinkTargets returns the link in nodes a link out node is confirmed to feed.
func (fs *FlowSet) LinkTargets(id string) []string {
	return append([]string(nil), fs.links[id]...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
