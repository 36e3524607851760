package main

import (
	"flag"
	"fmt"

	"mnemos/backend/internal/graph"
	"mnemos/backend/internal/persist"
	"mnemos/backend/pkg/config"
	apperrors "mnemos/backend/pkg/errors"
	"mnemos/backend/pkg/logger"
	"go.uber.org/zap"
)

// Seeds the snapshot file with a small starter graph so the server has
// something to answer queries about on first boot.

func main() {
	force := flag.Bool("force", false, "Overwrite an existing snapshot")
	flag.Parse()

	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Seeding starter graph...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	storage := persist.NewStorage(cfg.SnapshotPath)
	if _, err := storage.Load(); err == nil && !*force {
		log.Fatal("Snapshot already exists, use -force to overwrite",
			zap.String("path", cfg.SnapshotPath))
	} else if err != nil && !apperrors.IsNotFound(err) {
		log.Fatal("Failed to check existing snapshot", zap.Error(err))
	}

	store := graph.NewStore()
	seed := []struct {
		id, nodeType string
		meta         map[string]any
	}{
		{"Orin", "project", map[string]any{"desc": "personal memory assistant"}},
		{"Knowledge Graph", "concept", map[string]any{"desc": "typed nodes and relations"}},
		{"Set up snapshots", "task", map[string]any{"priority": "high"}},
	}
	for _, n := range seed {
		if err := store.CreateNode(n.id, n.nodeType, n.meta); err != nil {
			log.Fatal("Failed to create seed node", zap.String("id", n.id), zap.Error(err))
		}
	}
	links := [][3]string{
		{"Orin", "Knowledge Graph", "built_on"},
		{"Orin", "Set up snapshots", "contains_entity"},
	}
	for _, l := range links {
		if err := store.CreateEdge(l[0], l[1], l[2]); err != nil {
			log.Fatal("Failed to create seed link", zap.Error(err))
		}
	}

	location, err := storage.Save(store.Snapshot())
	if err != nil {
		log.Fatal("Failed to save seed graph", zap.Error(err))
	}
	log.Info("Seed graph written",
		zap.String("path", location),
		zap.Int("nodes", store.NodeCount()),
		zap.Int("edges", store.EdgeCount()),
	)
}
