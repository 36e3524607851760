package graph

// ============================================================================
// Layout View
// ============================================================================

// UnknownDepth marks nodes not reached from the seed within the depth cap
const UnknownDepth = -1

// ViewNode is a node annotated with presentation metadata. Group mirrors the
// semantic type so presentation layers can retag freely; Depth is the BFS
// distance from the layout seed. Neither field is ever persisted.
type ViewNode struct {
	Node
	Group string `json:"group"`
	Depth int    `json:"depth"`
}

// View is a snapshot decorated for rendering
type View struct {
	Nodes []ViewNode `json:"nodes"`
	Edges []Edge     `json:"edges"`
}

// LayoutView derives presentation metadata from a snapshot without touching
// graph semantics. When seed names a node in the snapshot, every node is
// tagged with its breadth-first distance from the seed, treating edges as
// undirected and capping traversal at maxDepth. An absent seed leaves all
// depths at UnknownDepth.
func LayoutView(snap Snapshot, seed string, maxDepth int) View {
	depths := assignDepths(snap, seed, maxDepth)

	view := View{
		Nodes: make([]ViewNode, 0, len(snap.Nodes)),
		Edges: snap.Edges,
	}
	for _, n := range snap.Nodes {
		depth, ok := depths[n.ID]
		if !ok {
			depth = UnknownDepth
		}
		view.Nodes = append(view.Nodes, ViewNode{
			Node:  n,
			Group: n.Type,
			Depth: depth,
		})
	}
	return view
}

// assignDepths runs an undirected BFS from seed over the snapshot's edges.
// Neighbors expand in the snapshot's deterministic edge order, successors
// before predecessors, and every node is visited at most once, so the result
// is stable for a given snapshot.
func assignDepths(snap Snapshot, seed string, maxDepth int) map[string]int {
	depths := make(map[string]int)
	if seed == "" {
		return depths
	}
	if _, ok := snap.Node(seed); !ok {
		return depths
	}

	successors := make(map[string][]string, len(snap.Nodes))
	predecessors := make(map[string][]string, len(snap.Nodes))
	for _, e := range snap.Edges {
		successors[e.Source] = append(successors[e.Source], e.Target)
		predecessors[e.Target] = append(predecessors[e.Target], e.Source)
	}

	depths[seed] = 0
	queue := []string{seed}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		depth := depths[current]
		if depth >= maxDepth {
			continue
		}
		for _, neighbor := range successors[current] {
			if _, visited := depths[neighbor]; !visited {
				depths[neighbor] = depth + 1
				queue = append(queue, neighbor)
			}
		}
		for _, neighbor := range predecessors[current] {
			if _, visited := depths[neighbor]; !visited {
				depths[neighbor] = depth + 1
				queue = append(queue, neighbor)
			}
		}
	}
	return depths
}
