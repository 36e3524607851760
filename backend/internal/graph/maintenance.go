package graph

import (
	"strings"

	"go.uber.org/zap"
)

// ============================================================================
// Maintenance Pass
// ============================================================================

// ConsolidationReport counts what each maintenance step removed
type ConsolidationReport struct {
	PrunedIsolated int `json:"pruned_isolated"`
	RemovedEmpty   int `json:"removed_empty"`
	Deduplicated   int `json:"deduplicated"`
}

// Consolidate runs the pre-commit maintenance pass as one write transaction:
// prune isolated nodes, drop nodes with no meaningful metadata, then collapse
// case-insensitive duplicate labels keeping the first-created node. Dropping
// a duplicate also drops its incident edges; edges are not re-pointed onto
// the retained node. Step order matters: each step operates on the survivors
// of the previous one. Running the pass twice yields the same graph as once.
func (s *Store) Consolidate() ConsolidationReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report ConsolidationReport

	// 1. Prune nodes with no incident edges
	var isolated []string
	for _, id := range s.order {
		if s.degreeLocked(id) == 0 {
			isolated = append(isolated, id)
		}
	}
	s.removeNodesLocked(isolated)
	report.PrunedIsolated = len(isolated)

	// 2. Remove nodes whose metadata carries no information
	var empty []string
	for _, id := range s.order {
		if metadataIsEmpty(s.nodes[id].Metadata) {
			empty = append(empty, id)
		}
	}
	s.removeNodesLocked(empty)
	report.RemovedEmpty = len(empty)

	// 3. Deduplicate by normalized label, first-created wins
	seen := make(map[string]struct{}, len(s.order))
	var duplicates []string
	for _, id := range s.order {
		normalized := strings.ToLower(id)
		if _, dup := seen[normalized]; dup {
			duplicates = append(duplicates, id)
			continue
		}
		seen[normalized] = struct{}{}
	}
	s.removeNodesLocked(duplicates)
	report.Deduplicated = len(duplicates)

	s.logger.Info("Graph consolidated",
		zap.Int("pruned_isolated", report.PrunedIsolated),
		zap.Int("removed_empty", report.RemovedEmpty),
		zap.Int("deduplicated", report.Deduplicated),
		zap.Int("remaining_nodes", len(s.order)),
	)
	return report
}

func metadataIsEmpty(meta map[string]any) bool {
	for _, v := range meta {
		if v == nil || v == "" {
			continue
		}
		return false
	}
	return true
}
