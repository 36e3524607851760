package graph

import (
	"testing"

	apperrors "mnemos/backend/pkg/errors"
)

func TestStore_CreateNode_Duplicate(t *testing.T) {
	store := NewStore()

	if err := store.CreateNode("Project X", "project", map[string]any{"desc": "pipeline"}); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}

	err := store.CreateNode("Project X", "task", map[string]any{"desc": "something else"})
	if err == nil {
		t.Fatal("Expected error for duplicate node")
	}
	if !apperrors.IsAlreadyExists(err) {
		t.Errorf("Expected AlreadyExists, got %T", err)
	}

	// Original node must be untouched
	node, err := store.GetNode("Project X")
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if node.Type != "project" {
		t.Errorf("Expected type 'project', got '%s'", node.Type)
	}
	if node.Metadata["desc"] != "pipeline" {
		t.Errorf("Expected original metadata, got %v", node.Metadata)
	}
}

func TestStore_CreateEdge_MissingEndpoint(t *testing.T) {
	store := NewStore()
	if err := store.CreateNode("A", "concept", nil); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}

	err := store.CreateEdge("A", "B", "related_to")
	if err == nil {
		t.Fatal("Expected error for missing target")
	}
	if !apperrors.IsNotFound(err) {
		t.Errorf("Expected NotFound, got %T", err)
	}
	if store.EdgeCount() != 0 {
		t.Errorf("Expected no edges after failed create, got %d", store.EdgeCount())
	}

	err = store.CreateEdge("B", "A", "related_to")
	if !apperrors.IsNotFound(err) {
		t.Errorf("Expected NotFound for missing source, got %T", err)
	}
}

func TestStore_CreateEdge_SelfLoop(t *testing.T) {
	store := NewStore()
	if err := store.CreateNode("A", "concept", nil); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}

	err := store.CreateEdge("A", "A", "related_to")
	if err == nil {
		t.Fatal("Expected error for self-loop")
	}
	if !apperrors.IsInvalidEdge(err) {
		t.Errorf("Expected InvalidEdge, got %T", err)
	}
}

func TestStore_CreateEdge_UpsertRelation(t *testing.T) {
	store := NewStore()
	for _, id := range []string{"A", "B"} {
		if err := store.CreateNode(id, "concept", nil); err != nil {
			t.Fatalf("CreateNode failed: %v", err)
		}
	}

	if err := store.CreateEdge("A", "B", "related_to"); err != nil {
		t.Fatalf("CreateEdge failed: %v", err)
	}
	if err := store.CreateEdge("A", "B", "depends_on"); err != nil {
		t.Fatalf("CreateEdge upsert failed: %v", err)
	}

	if store.EdgeCount() != 1 {
		t.Errorf("Expected 1 edge after upsert, got %d", store.EdgeCount())
	}
	snap := store.Snapshot()
	if len(snap.Edges) != 1 {
		t.Fatalf("Expected 1 snapshot edge, got %d", len(snap.Edges))
	}
	if snap.Edges[0].Relation != "depends_on" {
		t.Errorf("Expected relation overwritten to 'depends_on', got '%s'", snap.Edges[0].Relation)
	}
}

func TestStore_Snapshot_Consistent(t *testing.T) {
	store := NewStore()
	for _, id := range []string{"A", "B", "C"} {
		if err := store.CreateNode(id, "concept", nil); err != nil {
			t.Fatalf("CreateNode failed: %v", err)
		}
	}
	if err := store.CreateEdge("A", "B", "related_to"); err != nil {
		t.Fatalf("CreateEdge failed: %v", err)
	}
	if err := store.CreateEdge("C", "A", "related_to"); err != nil {
		t.Fatalf("CreateEdge failed: %v", err)
	}

	snap := store.Snapshot()

	present := make(map[string]bool)
	for _, n := range snap.Nodes {
		present[n.ID] = true
	}
	for _, e := range snap.Edges {
		if !present[e.Source] || !present[e.Target] {
			t.Errorf("Dangling edge in snapshot: %s -> %s", e.Source, e.Target)
		}
	}

	// Nodes keep insertion order
	want := []string{"A", "B", "C"}
	for i, n := range snap.Nodes {
		if n.ID != want[i] {
			t.Errorf("Expected node %s at position %d, got %s", want[i], i, n.ID)
		}
	}
}

func TestStore_Snapshot_Isolated(t *testing.T) {
	store := NewStore()
	if err := store.CreateNode("A", "concept", map[string]any{"k": "v"}); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}

	snap := store.Snapshot()
	snap.Nodes[0].Metadata["k"] = "mutated"

	node, err := store.GetNode("A")
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if node.Metadata["k"] != "v" {
		t.Error("Snapshot mutation leaked into store state")
	}
}

func TestStore_RemoveNodes_DropsIncidentEdges(t *testing.T) {
	store := NewStore()
	for _, id := range []string{"A", "B", "C"} {
		if err := store.CreateNode(id, "concept", nil); err != nil {
			t.Fatalf("CreateNode failed: %v", err)
		}
	}
	if err := store.CreateEdge("A", "B", "related_to"); err != nil {
		t.Fatalf("CreateEdge failed: %v", err)
	}
	if err := store.CreateEdge("B", "C", "related_to"); err != nil {
		t.Fatalf("CreateEdge failed: %v", err)
	}

	store.RemoveNodes([]string{"B"})

	if store.NodeCount() != 2 {
		t.Errorf("Expected 2 nodes, got %d", store.NodeCount())
	}
	if store.EdgeCount() != 0 {
		t.Errorf("Expected all incident edges removed, got %d", store.EdgeCount())
	}

	snap := store.Snapshot()
	for _, e := range snap.Edges {
		if e.Source == "B" || e.Target == "B" {
			t.Errorf("Edge still references removed node: %+v", e)
		}
	}
}

func TestStore_Replace_RejectsDanglingEdges(t *testing.T) {
	store := NewStore()

	err := store.Replace(Snapshot{
		Nodes: []Node{{ID: "A", Type: "concept", Metadata: map[string]any{}}},
		Edges: []Edge{{Source: "A", Target: "Missing", Relation: "related_to"}},
	})
	if err == nil {
		t.Fatal("Expected error for dangling edge in snapshot")
	}
	if !apperrors.IsNotFound(err) {
		t.Errorf("Expected NotFound, got %T", err)
	}
}

func TestStore_Replace_RoundTrip(t *testing.T) {
	store := NewStore()
	if err := store.CreateNode("A", "project", map[string]any{"desc": "x"}); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}
	if err := store.CreateNode("B", "task", nil); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}
	if err := store.CreateEdge("A", "B", "contains_entity"); err != nil {
		t.Fatalf("CreateEdge failed: %v", err)
	}

	snap := store.Snapshot()

	other := NewStore()
	if err := other.Replace(snap); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	restored := other.Snapshot()
	if len(restored.Nodes) != 2 || len(restored.Edges) != 1 {
		t.Fatalf("Round-trip mismatch: %d nodes, %d edges", len(restored.Nodes), len(restored.Edges))
	}
	if restored.Nodes[0].ID != "A" || restored.Nodes[0].Metadata["desc"] != "x" {
		t.Errorf("Node attributes lost in round-trip: %+v", restored.Nodes[0])
	}
	if restored.Edges[0] != snap.Edges[0] {
		t.Errorf("Edge lost in round-trip: %+v vs %+v", restored.Edges[0], snap.Edges[0])
	}
}
