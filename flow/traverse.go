// ABOUTME: Traversal primitives over a FlowSet: forward/reverse reachability, cycle detection, tab sizes.
// ABOUTME: Cycle detection uses Tarjan's SCC algorithm and reports each component once, in discovery order.
package flow

import "sort"

// Reachable returns the ids reachable from start by following OutEdges, in BFS
// discovery order. The start node is always expanded; any other node for which stop
// returns true is included but not expanded. Ids absent from the set are never included.
func (fs *FlowSet) Reachable(start string, stop func(*Node) bool) []string {
	return fs.bfs(start, stop, fs.out)
}

// ReverseReachable is Reachable over InEdges: the ids from which start can be reached.
func (fs *FlowSet) ReverseReachable(start string, stop func(*Node) bool) []string {
	return fs.bfs(start, stop, fs.in)
}

// ReachesAny reports whether a node matching match is reachable from start.
// Traversal stops at matching nodes; start itself is not considered.
func (fs *FlowSet) ReachesAny(start string, match func(*Node) bool) bool {
	for _, id := range fs.Reachable(start, match) {
		if id != start && match(fs.byID[id]) {
			return true
		}
	}
	return false
}

// ReachedFromAny reports whether start is reachable from some node matching match.
func (fs *FlowSet) ReachedFromAny(start string, match func(*Node) bool) bool {
	for _, id := range fs.ReverseReachable(start, match) {
		if id != start && match(fs.byID[id]) {
			return true
		}
	}
	return false
}

func (fs *FlowSet) bfs(start string, stop func(*Node) bool, edges map[string][]string) []string {
	if _, ok := fs.byID[start]; !ok {
		return nil
	}

	visited := map[string]bool{start: true}
	order := []string{start}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current != start && stop != nil && stop(fs.byID[current]) {
			continue
		}

		for _, next := range edges[current] {
			if visited[next] {
				continue
			}
			if _, ok := fs.byID[next]; !ok {
				continue
			}
			visited[next] = true
			order = append(order, next)
			queue = append(queue, next)
		}
	}
	return order
}

// Cycle is the set of node ids of one strongly connected component that forms a
// cycle, ordered by first discovery during the depth-first search.
type Cycle []string

// sccState holds per-node state during Tarjan's DFS.
type sccState struct {
	index   int
	lowlink int
	onStack bool
}

// FindCycles returns every strongly connected component of the subgraph induced by
// the nodes for which include returns true (all nodes when include is nil) that
// contains a cycle: two or more members, or a single member wired to itself.
// Components with several simple cycles are reported once as one merged set.
func (fs *FlowSet) FindCycles(include func(*Node) bool) []Cycle {
	inSubgraph := func(id string) bool {
		n, ok := fs.byID[id]
		return ok && (include == nil || include(n))
	}

	state := make(map[string]*sccState)
	var stack []string
	counter := 0
	var cycles []Cycle

	var strongconnect func(u string)
	strongconnect = func(u string) {
		state[u] = &sccState{index: counter, lowlink: counter, onStack: true}
		counter++
		stack = append(stack, u)

		for _, v := range fs.out[u] {
			if !inSubgraph(v) {
				continue
			}
			if _, seen := state[v]; !seen {
				strongconnect(v)
				if state[v].lowlink < state[u].lowlink {
					state[u].lowlink = state[v].lowlink
				}
			} else if state[v].onStack && state[v].index < state[u].lowlink {
				state[u].lowlink = state[v].index
			}
		}

		if state[u].lowlink != state[u].index {
			return
		}

		var members []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			state[w].onStack = false
			members = append(members, w)
			if w == u {
				break
			}
		}

		if len(members) == 1 && !contains(fs.out[u], u) {
			return
		}
		sort.Slice(members, func(i, j int) bool {
			return state[members[i]].index < state[members[j]].index
		})
		cycles = append(cycles, Cycle(members))
	}

	for _, n := range fs.nodes {
		if !inSubgraph(n.ID) {
			continue
		}
		if _, seen := state[n.ID]; !seen {
			strongconnect(n.ID)
		}
	}

	sort.SliceStable(cycles, func(i, j int) bool {
		return state[cycles[i][0]].index < state[cycles[j][0]].index
	})
	return cycles
}

// TabSize is the member count of one tab, excluding the tab's own descriptor.
type TabSize struct {
	TabID string
	Count int
}

// TabSizes returns the member count of every observed tab in first-observed order.
func (fs *FlowSet) TabSizes() []TabSize {
	sizes := make([]TabSize, 0, len(fs.tabIDs))
	for _, id := range fs.tabIDs {
		count := 0
		for _, n := range fs.tabs[id].Nodes {
			if n.ID == id && n.IsTabDescriptor() {
				continue
			}
			count++
		}
		sizes = append(sizes, TabSize{TabID: id, Count: count})
	}
	return sizes
}
