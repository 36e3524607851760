package memory

import (
	"strings"
	"testing"

	"mnemos/backend/internal/graph"
)

func TestBuildContext_Empty(t *testing.T) {
	got := BuildContext(nil, graph.Snapshot{})
	if got != "No relevant information found in your memory." {
		t.Errorf("Unexpected empty context: %q", got)
	}
}

func TestBuildContext_RendersNodeAndNeighborhood(t *testing.T) {
	store := graph.NewStore()
	for _, n := range []struct {
		id, typ string
		meta    map[string]any
	}{
		{"Orin", "project", map[string]any{"desc": "memory assistant"}},
		{"Setup CI", "task", nil},
		{"Go", "technology", nil},
	} {
		if err := store.CreateNode(n.id, n.typ, n.meta); err != nil {
			t.Fatalf("CreateNode failed: %v", err)
		}
	}
	if err := store.CreateEdge("Orin", "Setup CI", "contains_entity"); err != nil {
		t.Fatalf("CreateEdge failed: %v", err)
	}
	if err := store.CreateEdge("Go", "Orin", "used_by"); err != nil {
		t.Fatalf("CreateEdge failed: %v", err)
	}
	snap := store.Snapshot()

	node, ok := snap.Node("Orin")
	if !ok {
		t.Fatal("Fixture node missing")
	}
	got := BuildContext([]graph.Node{node}, snap)

	for _, want := range []string{
		"Node: Orin (Type: project)",
		"- desc: memory assistant",
		"- Related to Setup CI (task) via contains_entity",
		"- Go (technology) is related via used_by",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Context missing %q in:\n%s", want, got)
		}
	}
}

func TestBuildContext_UnknownNeighborType(t *testing.T) {
	// An edge endpoint absent from the node list renders as "unknown"
	snap := graph.Snapshot{
		Nodes: []graph.Node{{ID: "A", Type: "concept", Metadata: map[string]any{}}},
		Edges: []graph.Edge{{Source: "A", Target: "Ghost", Relation: "haunts"}},
	}

	got := BuildContext(snap.Nodes, snap)
	if !strings.Contains(got, "Related to Ghost (unknown) via haunts") {
		t.Errorf("Expected unknown neighbor type, got:\n%s", got)
	}
}
