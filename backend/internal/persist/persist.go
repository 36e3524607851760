package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"mnemos/backend/internal/graph"
	apperrors "mnemos/backend/pkg/errors"
	"mnemos/backend/pkg/logger"
	"go.uber.org/zap"
)

// ============================================================================
// Snapshot Persistence
// ============================================================================

// Storage serializes whole-graph snapshots to a single JSON file. There is no
// incremental persistence; a save always rewrites the full node and edge set,
// and load reconstructs the exact same directed graph.
type Storage struct {
	path   string
	logger *zap.Logger
}

// NewStorage creates snapshot storage rooted at path
func NewStorage(path string) *Storage {
	return &Storage{
		path:   path,
		logger: logger.Get(),
	}
}

// Path returns the snapshot file location
func (s *Storage) Path() string {
	return s.path
}

// Save writes the snapshot to disk and returns the file location. The write
// goes through a temp file plus rename so a reader never sees a torn file.
func (s *Storage) Save(snap graph.Snapshot) (string, error) {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return "", fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	s.logger.Info("Graph saved",
		zap.String("path", s.path),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)),
	)
	return s.path, nil
}

// Load reads a snapshot from disk. It fails with NotFound when no snapshot
// has been saved at the configured path yet.
func (s *Storage) Load() (graph.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return graph.Snapshot{}, apperrors.NewSnapshotNotFound(s.path)
		}
		return graph.Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap graph.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return graph.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	s.logger.Info("Graph loaded",
		zap.String("path", s.path),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)),
	)
	return snap, nil
}
