package memory

import (
	"context"
	"fmt"
	"testing"

	"mnemos/backend/internal/graph"
	apperrors "mnemos/backend/pkg/errors"
)

// mockEmbedder maps known texts to fixed vectors
type mockEmbedder struct {
	vectors map[string][]float32
	fail    bool
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.fail {
		return nil, apperrors.NewEmbeddingFailure("mock", fmt.Errorf("provider down"))
	}
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

func snapshotOf(t *testing.T, nodes ...graph.Node) graph.Snapshot {
	t.Helper()
	store := graph.NewStore()
	for _, n := range nodes {
		if err := store.CreateNode(n.ID, n.Type, n.Metadata); err != nil {
			t.Fatalf("CreateNode failed: %v", err)
		}
	}
	return store.Snapshot()
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	snap := snapshotOf(t,
		graph.Node{ID: "Project X", Type: "project"},
		graph.Node{ID: "Idea", Type: "concept"},
	)

	embedder := &mockEmbedder{vectors: map[string][]float32{
		"machine learning":    {1, 0, 0},
		"Project X (project)": {1, 0, 0}, // identical to the query: similarity 1.0
		"Idea (concept)":      {0, 1, 0},
	}}
	engine := NewEngine(embedder)

	results := engine.Search(context.Background(), "machine learning", snap, 2)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].ID != "Project X" {
		t.Errorf("Expected exact-match node ranked first, got '%s'", results[0].ID)
	}
	// No threshold on the semantic path: the weak match is still returned
	if results[1].ID != "Idea" {
		t.Errorf("Expected weak match included, got '%s'", results[1].ID)
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	snap := snapshotOf(t,
		graph.Node{ID: "First", Type: "concept"},
		graph.Node{ID: "Second", Type: "concept"},
	)

	embedder := &mockEmbedder{vectors: map[string][]float32{
		"query":            {1, 0, 0},
		"First (concept)":  {1, 0, 0},
		"Second (concept)": {1, 0, 0},
	}}
	engine := NewEngine(embedder)

	results := engine.Search(context.Background(), "query", snap, 2)
	if results[0].ID != "First" || results[1].ID != "Second" {
		t.Errorf("Ties must keep insertion order, got %s then %s", results[0].ID, results[1].ID)
	}
}

func TestSearch_TruncatesToK(t *testing.T) {
	snap := snapshotOf(t,
		graph.Node{ID: "A", Type: "concept"},
		graph.Node{ID: "B", Type: "concept"},
		graph.Node{ID: "C", Type: "concept"},
	)
	engine := NewEngine(&mockEmbedder{})

	if got := len(engine.Search(context.Background(), "q", snap, 2)); got != 2 {
		t.Errorf("Expected 2 results, got %d", got)
	}
	// Fewer nodes than k returns all of them
	if got := len(engine.Search(context.Background(), "q", snap, 10)); got != 3 {
		t.Errorf("Expected all 3 results, got %d", got)
	}
}

func TestSearch_FallbackOnEmbeddingFailure(t *testing.T) {
	snap := snapshotOf(t,
		graph.Node{ID: "Project X", Type: "project"},
		graph.Node{ID: "Idea", Type: "concept"},
	)
	engine := NewEngine(&mockEmbedder{fail: true})

	results := engine.Search(context.Background(), "project", snap, 5)
	if len(results) != 1 {
		t.Fatalf("Expected exactly the matching node, got %d results", len(results))
	}
	if results[0].ID != "Project X" {
		t.Errorf("Expected 'Project X', got '%s'", results[0].ID)
	}
}

func TestSearch_FallbackNoMatches(t *testing.T) {
	snap := snapshotOf(t, graph.Node{ID: "Idea", Type: "concept"})
	engine := NewEngine(&mockEmbedder{fail: true})

	// A failed fallback yields an empty result, never an error
	if results := engine.Search(context.Background(), "unrelated", snap, 5); len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}

func TestSearch_EmptyGraph(t *testing.T) {
	engine := NewEngine(&mockEmbedder{})
	if results := engine.Search(context.Background(), "q", graph.Snapshot{}, 5); len(results) != 0 {
		t.Errorf("Expected no results on empty graph, got %d", len(results))
	}
}

func TestSearch_CachesNodeEmbeddings(t *testing.T) {
	snap := snapshotOf(t, graph.Node{ID: "A", Type: "concept"})
	embedder := &mockEmbedder{}
	engine := NewEngine(embedder)

	engine.Search(context.Background(), "q", snap, 1)
	firstCalls := embedder.calls
	engine.Search(context.Background(), "q", snap, 1)

	// Second search re-embeds only the query, not the unchanged node
	if embedder.calls != firstCalls+1 {
		t.Errorf("Expected 1 extra embed call, got %d", embedder.calls-firstCalls)
	}
}

func TestCanonicalText(t *testing.T) {
	node := graph.Node{
		ID:   "Project X",
		Type: "project",
		Metadata: map[string]any{
			"priority": "high",
			"desc":     "pipeline",
		},
	}
	want := "Project X (project) | desc: pipeline; priority: high"
	if got := CanonicalText(node); got != want {
		t.Errorf("CanonicalText = %q, want %q", got, want)
	}

	bare := graph.Node{ID: "Idea", Type: "concept"}
	if got := CanonicalText(bare); got != "Idea (concept)" {
		t.Errorf("CanonicalText = %q, want %q", got, "Idea (concept)")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero magnitude", []float32{0, 0}, []float32{1, 1}, 0.0},
	}
	for _, tt := range tests {
		got := cosineSimilarity(tt.a, tt.b)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s: cosineSimilarity = %v, want %v", tt.name, got, tt.want)
		}
	}
}
