package graph

import (
	"sort"
	"sync"

	apperrors "mnemos/backend/pkg/errors"
	"mnemos/backend/pkg/logger"
	"go.uber.org/zap"
)

// ============================================================================
// Graph Store
// ============================================================================

// Store owns all node and edge state. Mutations are serialized behind a
// single write lock; reads are answered against a consistent view and may
// run concurrently with each other. Nothing outside this package holds a
// mutable reference to the maps below.
type Store struct {
	mu sync.RWMutex

	nodes map[string]*Node
	order []string // node ids in creation order

	// adjacency: out[source][target] = relation, in[target] = set of sources
	out map[string]map[string]string
	in  map[string]map[string]struct{}

	edgeCount int
	logger    *zap.Logger
}

// NewStore creates an empty graph store
func NewStore() *Store {
	return &Store{
		nodes:  make(map[string]*Node),
		out:    make(map[string]map[string]string),
		in:     make(map[string]map[string]struct{}),
		logger: logger.Get(),
	}
}

// CreateNode adds a node with a unique id. It fails with AlreadyExists if the
// id is taken, leaving the existing node untouched.
func (s *Store) CreateNode(id, nodeType string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; ok {
		return apperrors.NewAlreadyExists(id)
	}

	s.nodes[id] = &Node{
		ID:       id,
		Type:     nodeType,
		Metadata: copyMetadata(metadata),
	}
	s.order = append(s.order, id)
	return nil
}

// CreateEdge links two existing nodes. Both endpoints must exist and must
// differ; linking an already-linked pair overwrites the relation instead of
// adding a parallel edge.
func (s *Store) CreateEdge(source, target, relation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if source == target {
		return apperrors.NewInvalidEdge(source, target, "self-loops are not allowed")
	}
	if relation == "" {
		return apperrors.NewInvalidEdge(source, target, "relation must not be empty")
	}
	if _, ok := s.nodes[source]; !ok {
		return apperrors.NewNotFound(source)
	}
	if _, ok := s.nodes[target]; !ok {
		return apperrors.NewNotFound(target)
	}

	targets, ok := s.out[source]
	if !ok {
		targets = make(map[string]string)
		s.out[source] = targets
	}
	if _, exists := targets[target]; !exists {
		s.edgeCount++
		sources, ok := s.in[target]
		if !ok {
			sources = make(map[string]struct{})
			s.in[target] = sources
		}
		sources[source] = struct{}{}
	}
	targets[target] = relation
	return nil
}

// GetNode returns a copy of the node with the given id
func (s *Store) GetNode(id string) (Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return Node{}, apperrors.NewNotFound(id)
	}
	copied := *node
	copied.Metadata = copyMetadata(node.Metadata)
	return copied, nil
}

// Snapshot returns a point-in-time copy of the full graph. The copy shares no
// state with the store, so long-latency consumers (embedding, layout) can
// work on it without blocking mutations.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Nodes: make([]Node, 0, len(s.order)),
		Edges: make([]Edge, 0, s.edgeCount),
	}
	for _, id := range s.order {
		node := s.nodes[id]
		copied := *node
		copied.Metadata = copyMetadata(node.Metadata)
		snap.Nodes = append(snap.Nodes, copied)
	}
	for _, source := range s.order {
		targets := s.out[source]
		if len(targets) == 0 {
			continue
		}
		ids := make([]string, 0, len(targets))
		for target := range targets {
			ids = append(ids, target)
		}
		sort.Strings(ids)
		for _, target := range ids {
			snap.Edges = append(snap.Edges, Edge{Source: source, Target: target, Relation: targets[target]})
		}
	}
	return snap
}

// RemoveNodes deletes the given nodes and every edge incident to them as one
// unit. Unknown ids are ignored. Used by the maintenance pass.
func (s *Store) RemoveNodes(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeNodesLocked(ids)
}

func (s *Store) removeNodesLocked(ids []string) {
	removed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.nodes[id]; !ok {
			continue
		}
		removed[id] = struct{}{}

		for target := range s.out[id] {
			delete(s.in[target], id)
			s.edgeCount--
		}
		delete(s.out, id)

		for source := range s.in[id] {
			delete(s.out[source], id)
			s.edgeCount--
		}
		delete(s.in, id)

		delete(s.nodes, id)
	}
	if len(removed) == 0 {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if _, gone := removed[id]; !gone {
			kept = append(kept, id)
		}
	}
	s.order = kept
}

// Replace swaps in a previously saved snapshot as the new graph state. The
// snapshot must be self-consistent: every edge endpoint has to be present in
// the node list.
func (s *Store) Replace(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make(map[string]*Node, len(snap.Nodes))
	order := make([]string, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if _, dup := nodes[n.ID]; dup {
			return apperrors.NewAlreadyExists(n.ID)
		}
		copied := n
		copied.Metadata = copyMetadata(n.Metadata)
		nodes[n.ID] = &copied
		order = append(order, n.ID)
	}

	out := make(map[string]map[string]string)
	in := make(map[string]map[string]struct{})
	edgeCount := 0
	for _, e := range snap.Edges {
		if _, ok := nodes[e.Source]; !ok {
			return apperrors.NewNotFound(e.Source)
		}
		if _, ok := nodes[e.Target]; !ok {
			return apperrors.NewNotFound(e.Target)
		}
		if out[e.Source] == nil {
			out[e.Source] = make(map[string]string)
		}
		if _, exists := out[e.Source][e.Target]; !exists {
			edgeCount++
		}
		out[e.Source][e.Target] = e.Relation
		if in[e.Target] == nil {
			in[e.Target] = make(map[string]struct{})
		}
		in[e.Target][e.Source] = struct{}{}
	}

	s.nodes = nodes
	s.order = order
	s.out = out
	s.in = in
	s.edgeCount = edgeCount

	s.logger.Info("Graph state replaced",
		zap.Int("nodes", len(order)),
		zap.Int("edges", edgeCount),
	)
	return nil
}

// NodeCount returns the number of nodes in the graph
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// EdgeCount returns the number of edges in the graph
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edgeCount
}

func (s *Store) degreeLocked(id string) int {
	return len(s.out[id]) + len(s.in[id])
}
