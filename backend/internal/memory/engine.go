package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"mnemos/backend/internal/graph"
	"mnemos/backend/pkg/logger"
	"go.uber.org/zap"
)

// ============================================================================
// Retrieval Engine
// ============================================================================

// Embedder turns text into a fixed-dimensionality vector. Calls may be
// network-bound and slow; the engine only ever invokes them against a
// snapshot taken beforehand, never while holding store access.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Engine ranks snapshot nodes against a natural-language query. The primary
// path scores by cosine similarity of embeddings; when the embedding
// collaborator fails it degrades to lexical token matching and never
// surfaces an error to the caller.
type Engine struct {
	embedder Embedder
	cache    *gocache.Cache
	logger   *zap.Logger
}

// NewEngine creates a retrieval engine backed by the given embedder.
// Node-text embeddings are memoized keyed by canonical text, so repeated
// searches over a stable graph skip most provider calls.
func NewEngine(embedder Embedder) *Engine {
	return &Engine{
		embedder: embedder,
		cache:    gocache.New(30*time.Minute, 10*time.Minute),
		logger:   logger.Get(),
	}
}

// Search returns the top k snapshot nodes ranked against the query. The
// semantic path applies no score threshold: on a small graph even a weakly
// similar node is returned. Ties keep snapshot (insertion) order.
func (e *Engine) Search(ctx context.Context, query string, snap graph.Snapshot, k int) []graph.Node {
	if len(snap.Nodes) == 0 || k < 1 {
		return nil
	}

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn("Semantic search unavailable, using lexical fallback", zap.Error(err))
		return lexicalSearch(query, snap.Nodes, k)
	}

	scores := make([]float64, len(snap.Nodes))
	for i, node := range snap.Nodes {
		vec, err := e.nodeEmbedding(ctx, node)
		if err != nil {
			e.logger.Warn("Node embedding failed, using lexical fallback",
				zap.String("node", node.ID),
				zap.Error(err),
			)
			return lexicalSearch(query, snap.Nodes, k)
		}
		scores[i] = cosineSimilarity(queryVec, vec)
	}

	ranked := make([]int, len(snap.Nodes))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return scores[ranked[a]] > scores[ranked[b]]
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	results := make([]graph.Node, 0, k)
	for _, idx := range ranked[:k] {
		results = append(results, snap.Nodes[idx])
	}
	return results
}

func (e *Engine) nodeEmbedding(ctx context.Context, node graph.Node) ([]float32, error) {
	text := CanonicalText(node)
	if cached, ok := e.cache.Get(text); ok {
		return cached.([]float32), nil
	}
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.SetDefault(text, vec)
	return vec, nil
}

// lexicalSearch scores nodes by how many distinct query tokens occur as
// substrings of the lowercased canonical text. Zero-overlap nodes are
// dropped. This path never fails; no matches just means an empty result.
func lexicalSearch(query string, nodes []graph.Node, k int) []graph.Node {
	tokens := make(map[string]struct{})
	for _, t := range strings.Fields(strings.ToLower(query)) {
		tokens[t] = struct{}{}
	}

	type scored struct {
		node  graph.Node
		score int
	}
	var matches []scored
	for _, node := range nodes {
		text := strings.ToLower(CanonicalText(node))
		score := 0
		for token := range tokens {
			if strings.Contains(text, token) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{node: node, score: score})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].score > matches[b].score
	})

	if k > len(matches) {
		k = len(matches)
	}
	results := make([]graph.Node, 0, k)
	for _, m := range matches[:k] {
		results = append(results, m.node)
	}
	return results
}

// CanonicalText is the deterministic string form of a node used for both
// embedding and lexical scoring: `label (type) | key: value; key: value`
// with metadata keys in sorted order.
func CanonicalText(node graph.Node) string {
	var b strings.Builder
	b.WriteString(node.ID)
	b.WriteString(" (")
	b.WriteString(node.Type)
	b.WriteString(")")

	if len(node.Metadata) > 0 {
		keys := make([]string, 0, len(node.Metadata))
		for k := range node.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s: %v", k, node.Metadata[k]))
		}
		b.WriteString(" | ")
		b.WriteString(strings.Join(pairs, "; "))
	}
	return b.String()
}

// cosineSimilarity is dot(a,b) / (|a| * |b|), defined as 0 when either
// vector has zero magnitude. Vectors of unequal length are compared over
// their common prefix.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		magA += float64(v) * float64(v)
	}
	for _, v := range b {
		magB += float64(v) * float64(v)
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
