// ABOUTME: Node and Tab types for parsed flow exports, with node type constants and small predicates.
// ABOUTME: Nodes are read-only after parsing; a FlowSet owns every Node it indexes.
package flow

// Well-known node type values used by the built-in rules.
const (
	TypeTab          = "tab"
	TypeSubflow      = "subflow"
	TypeFunction     = "function"
	TypeComment      = "comment"
	TypeHTTPIn       = "http in"
	TypeHTTPResponse = "http response"
	TypeLinkIn       = "link in"
	TypeLinkOut      = "link out"
)

// Node is one element of a flow: a processing node, a tab descriptor, or a config node.
type Node struct {
	ID    string
	Type  string
	Z     string // owning tab id; empty for tab descriptors and config nodes
	Name  string
	Label string // set on tab descriptors
	X     float64
	Y     float64

	// Wires holds one entry per output port; each port lists target node ids in order.
	Wires [][]string

	// Links names the paired link node(s); only meaningful on link in/out nodes.
	Links []string

	// Func is the embedded script of script-bearing nodes.
	Func string
}

// IsLink reports whether the node is a link in or link out node.
func (n *Node) IsLink() bool {
	return n.Type == TypeLinkIn || n.Type == TypeLinkOut
}

// IsTabDescriptor reports whether the node describes a tab or subflow rather than living on one.
func (n *Node) IsTabDescriptor() bool {
	return n.Type == TypeTab || n.Type == TypeSubflow
}

// WireTargets returns every wire target across all ports, deduplicated, in port order.
func (n *Node) WireTargets() []string {
	var targets []string
	seen := make(map[string]bool)
	for _, port := range n.Wires {
		for _, id := range port {
			if seen[id] {
				continue
			}
			seen[id] = true
			targets = append(targets, id)
		}
	}
	return targets
}

// Tab is a grouping of nodes sharing the same z value.
// Descriptor is nil when the flow references the tab id without describing it.
type Tab struct {
	ID         string
	Descriptor *Node
	Nodes      []*Node
}

// Label returns the tab descriptor's label, or an empty string for anonymous tabs.
func (t *Tab) Label() string {
	if t.Descriptor == nil {
		return ""
	}
	if t.Descriptor.Label != "" {
		return t.Descriptor.Label
	}
	return t.Descriptor.Name
}
