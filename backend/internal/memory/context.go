package memory

import (
	"fmt"
	"sort"
	"strings"

	"mnemos/backend/internal/graph"
)

// ============================================================================
// Context Assembly
// ============================================================================

// BuildContext renders retrieved nodes plus their one-hop neighborhood as the
// textual context handed to the answer-generation collaborator. It carries
// facts only, no control information.
func BuildContext(nodes []graph.Node, snap graph.Snapshot) string {
	if len(nodes) == 0 {
		return "No relevant information found in your memory."
	}

	types := make(map[string]string, len(snap.Nodes))
	for _, n := range snap.Nodes {
		types[n.ID] = n.Type
	}

	var parts []string
	for _, node := range nodes {
		var b strings.Builder
		fmt.Fprintf(&b, "Node: %s (Type: %s)\n", node.ID, node.Type)

		if len(node.Metadata) > 0 {
			keys := make([]string, 0, len(node.Metadata))
			for k := range node.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			b.WriteString("Metadata:\n")
			for _, k := range keys {
				fmt.Fprintf(&b, "- %s: %v\n", k, node.Metadata[k])
			}
		}

		var connections []string
		for _, e := range snap.Edges {
			if e.Source == node.ID {
				connections = append(connections,
					fmt.Sprintf("- Related to %s (%s) via %s", e.Target, typeOf(types, e.Target), e.Relation))
			}
		}
		for _, e := range snap.Edges {
			if e.Target == node.ID {
				connections = append(connections,
					fmt.Sprintf("- %s (%s) is related via %s", e.Source, typeOf(types, e.Source), e.Relation))
			}
		}
		if len(connections) > 0 {
			b.WriteString("Connections:\n")
			b.WriteString(strings.Join(connections, "\n"))
			b.WriteString("\n")
		}

		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

func typeOf(types map[string]string, id string) string {
	if t, ok := types[id]; ok {
		return t
	}
	return "unknown"
}
