package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"mnemos/backend/internal/adapter"
	"mnemos/backend/internal/graph"
	"mnemos/backend/internal/importer"
	"mnemos/backend/internal/memory"
	"mnemos/backend/internal/persist"
	"mnemos/backend/pkg/config"
	apperrors "mnemos/backend/pkg/errors"
	"mnemos/backend/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// answerer is the answer-generation collaborator
type answerer interface {
	Answer(ctx context.Context, graphContext, query string) (string, error)
}

// extractor is the entity-extraction collaborator, exposed directly for the
// single-message extraction endpoint
type extractor interface {
	ExtractEntities(ctx context.Context, text string) ([]adapter.EntityCandidate, error)
}

func main() {
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting mnemos server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	store := graph.NewStore()
	storage := persist.NewStorage(cfg.SnapshotPath)
	llm := adapter.NewLLMAdapter(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.ChatModel, cfg.EmbeddingModel)
	engine := memory.NewEngine(llm)
	imp := importer.NewImporter(store, llm, storage, cfg.MinMessageLength)

	// Warm-start from the last snapshot when one exists
	if snap, err := storage.Load(); err == nil {
		if err := store.Replace(snap); err != nil {
			log.Fatal("Failed to install saved graph", zap.Error(err))
		}
	} else if !apperrors.IsNotFound(err) {
		log.Fatal("Failed to load saved graph", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, store, storage, engine, imp, llm, llm)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		log.Info("Server started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case <-gctx.Done():
			return gctx.Err()
		}

		log.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error("Server exited with error", zap.Error(err))
	}
	log.Info("Server exited")
}

// newRouter wires all HTTP routes. Collaborators come in as interfaces so
// handler tests can swap in mocks.
func newRouter(cfg *config.Config, store *graph.Store, storage *persist.Storage, engine *memory.Engine, imp *importer.Importer, ans answerer, ext extractor) *gin.Engine {
	log := logger.Get()

	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Create node
	router.POST("/node", func(c *gin.Context) {
		var req struct {
			Label string         `json:"label" binding:"required"`
			Type  string         `json:"type" binding:"required"`
			Meta  map[string]any `json:"meta"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := store.CreateNode(req.Label, req.Type, req.Meta); err != nil {
			if apperrors.IsAlreadyExists(err) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Node already exists"})
				return
			}
			log.Error("Failed to create node", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create node"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Node created", "id": req.Label})
	})

	// Get a single node
	router.GET("/node/:id", func(c *gin.Context) {
		node, err := store.GetNode(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Node not found"})
			return
		}
		c.JSON(http.StatusOK, node)
	})

	// Create link
	router.POST("/link", func(c *gin.Context) {
		var req struct {
			Source   string `json:"source" binding:"required"`
			Target   string `json:"target" binding:"required"`
			Relation string `json:"relation" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := store.CreateEdge(req.Source, req.Target, req.Relation); err != nil {
			switch {
			case apperrors.IsNotFound(err):
				c.JSON(http.StatusNotFound, gin.H{"error": "Missing node(s)"})
			case apperrors.IsInvalidEdge(err):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				log.Error("Failed to create link", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create link"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Link created", "from": req.Source, "to": req.Target})
	})

	// Full graph
	router.GET("/graph", func(c *gin.Context) {
		c.JSON(http.StatusOK, store.Snapshot())
	})

	// Layout view with optional BFS depth from a seed node
	router.GET("/layout", func(c *gin.Context) {
		seed := c.Query("seed")
		maxDepth := 3
		if d := c.Query("depth"); d != "" {
			if _, err := fmt.Sscanf(d, "%d", &maxDepth); err != nil || maxDepth < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "depth must be a positive integer"})
				return
			}
		}
		c.JSON(http.StatusOK, graph.LayoutView(store.Snapshot(), seed, maxDepth))
	})

	// Save snapshot
	router.POST("/save", func(c *gin.Context) {
		location, err := storage.Save(store.Snapshot())
		if err != nil {
			log.Error("Failed to save graph", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save graph"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Graph saved to %s", location)})
	})

	// Load snapshot
	router.GET("/load", func(c *gin.Context) {
		snap, err := storage.Load()
		if err != nil {
			if apperrors.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "No saved graph"})
				return
			}
			log.Error("Failed to load graph", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load graph"})
			return
		}
		if err := store.Replace(snap); err != nil {
			log.Error("Saved graph is inconsistent", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Saved graph is inconsistent"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Graph loaded"})
	})

	// Consolidate, then save: the commit-grade persistence path
	router.POST("/verify-then-save", func(c *gin.Context) {
		report := store.Consolidate()
		if _, err := storage.Save(store.Snapshot()); err != nil {
			log.Error("Failed to save graph", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save graph"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Graph sorted and saved.", "report": report})
	})

	api := router.Group("/api")
	{
		// Extract entities from a single message
		api.POST("/extract", func(c *gin.Context) {
			var req struct {
				Content string `json:"content" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			entities, err := ext.ExtractEntities(c.Request.Context(), req.Content)
			if err != nil {
				if apperrors.IsParseFailure(err) {
					c.JSON(http.StatusBadGateway, gin.H{"error": "JSON parse failed"})
					return
				}
				log.Error("Entity extraction failed", zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"error": "Entity extraction failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"entities": entities})
		})

		// Start a batch import job
		api.POST("/batch-import", func(c *gin.Context) {
			var req struct {
				Conversations []importer.Conversation `json:"conversations" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			status := imp.Submit(req.Conversations)
			c.JSON(http.StatusOK, gin.H{"message": "Started", "job_id": status.JobID, "total": status.Total})
		})

		// Poll import progress
		api.GET("/import-status", func(c *gin.Context) {
			c.JSON(http.StatusOK, imp.Status())
		})

		// Natural-language query over the graph
		api.POST("/query", func(c *gin.Context) {
			var req struct {
				Query      string `json:"query" binding:"required"`
				MaxResults int    `json:"max_results"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if req.MaxResults < 1 {
				req.MaxResults = cfg.MaxResults
			}

			// Retrieval works on a snapshot taken before any provider call,
			// so slow embeddings never block store mutations.
			snap := store.Snapshot()
			nodes := engine.Search(c.Request.Context(), req.Query, snap, req.MaxResults)
			graphContext := memory.BuildContext(nodes, snap)

			answer, err := ans.Answer(c.Request.Context(), graphContext, req.Query)
			if err != nil {
				log.Error("Answer generation failed", zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate answer"})
				return
			}

			sources := make([]gin.H, 0, len(nodes))
			for _, n := range nodes {
				sources = append(sources, gin.H{"id": n.ID, "label": n.ID, "type": n.Type})
			}
			c.JSON(http.StatusOK, gin.H{"answer": answer, "sources": sources})
		})
	}

	return router
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
