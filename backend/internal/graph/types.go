package graph

// ============================================================================
// Graph Types
// ============================================================================

// Node is a uniquely labeled entity in the knowledge graph. The ID doubles as
// the user-visible label and is immutable once created.
type Node struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"meta"`
}

// Edge is a directed, typed relation between two existing nodes. At most one
// edge exists per ordered pair; re-creating the pair overwrites the relation.
type Edge struct {
	Source   string `json:"from"`
	Target   string `json:"to"`
	Relation string `json:"relation"`
}

// Snapshot is a point-in-time, internally consistent copy of the full graph.
// Nodes appear in insertion order; edges are ordered by source insertion
// order, then target id, so iteration is deterministic.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node returns the snapshot node with the given id, if present.
func (s Snapshot) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

func copyMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
