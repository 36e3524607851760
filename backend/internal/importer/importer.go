package importer

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"mnemos/backend/internal/adapter"
	"mnemos/backend/internal/graph"
	apperrors "mnemos/backend/pkg/errors"
	"mnemos/backend/pkg/logger"
	"go.uber.org/zap"
)

// ============================================================================
// Batch Import Pipeline
// ============================================================================

// Extractor is the entity extraction collaborator
type Extractor interface {
	ExtractEntities(ctx context.Context, text string) ([]adapter.EntityCandidate, error)
}

// Saver persists a graph snapshot when a job completes
type Saver interface {
	Save(snap graph.Snapshot) (string, error)
}

// Message is one conversation message in a bulk import payload
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"create_time,omitempty"`
}

// Conversation is one conversation record in a bulk import payload
type Conversation struct {
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// Status tracks the currently visible import job. Counters only ever grow
// while the job runs; once Complete flips to true the record is frozen until
// the next Submit overwrites it.
type Status struct {
	JobID        string `json:"job_id"`
	Total        int    `json:"total"`
	Processed    int    `json:"processed"`
	CreatedNodes int    `json:"created_nodes"`
	CreatedLinks int    `json:"created_links"`
	Errors       int    `json:"errors"`
	Complete     bool   `json:"complete"`
}

// RelationContainsEntity links a conversation node to an extracted entity
const RelationContainsEntity = "contains_entity"

// Importer ingests bulk conversation records into the graph as one
// long-running background job. Every mutation it issues goes through the
// store's normal serialization, so foreground requests interleave safely at
// mutation granularity. One bad conversation or entity never halts the job;
// failures increment the error counter and processing keeps going.
type Importer struct {
	store            *graph.Store
	extractor        Extractor
	saver            Saver
	minMessageLength int
	logger           *zap.Logger

	mu     sync.RWMutex
	status Status
}

// NewImporter creates a batch import pipeline
func NewImporter(store *graph.Store, extractor Extractor, saver Saver, minMessageLength int) *Importer {
	return &Importer{
		store:            store,
		extractor:        extractor,
		saver:            saver,
		minMessageLength: minMessageLength,
		logger:           logger.Get(),
	}
}

// Submit starts a new import job and returns its initial status immediately;
// the job itself proceeds in the background. Submitting while a job is
// running overwrites the visible status record; callers that need strict
// single-flight must enforce it themselves.
func (im *Importer) Submit(conversations []Conversation) Status {
	status := Status{
		JobID: uuid.New().String(),
		Total: len(conversations),
	}

	im.mu.Lock()
	im.status = status
	im.mu.Unlock()

	im.logger.Info("Batch import started",
		zap.String("job_id", status.JobID),
		zap.Int("total", status.Total),
	)

	go im.run(conversations)
	return status
}

// Status returns the latest counters for the visible import job
func (im *Importer) Status() Status {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.status
}

func (im *Importer) run(conversations []Conversation) {
	ctx := context.Background()

	for _, conversation := range conversations {
		im.processConversation(ctx, conversation)
	}

	im.update(func(s *Status) { s.Complete = true })

	status := im.Status()
	im.logger.Info("Batch import complete",
		zap.String("job_id", status.JobID),
		zap.Int("processed", status.Processed),
		zap.Int("created_nodes", status.CreatedNodes),
		zap.Int("created_links", status.CreatedLinks),
		zap.Int("errors", status.Errors),
	)

	if _, err := im.saver.Save(im.store.Snapshot()); err != nil {
		im.logger.Error("Failed to save graph after import", zap.Error(err))
	}
}

func (im *Importer) processConversation(ctx context.Context, conversation Conversation) {
	// A conversation counts as processed exactly once, however many of its
	// entities succeed or fail.
	defer im.update(func(s *Status) { s.Processed++ })

	title := conversation.Title
	if title == "" {
		title = "Unnamed Conversation"
	}

	messages := eligibleMessages(conversation.Messages)
	if len(messages) == 0 {
		return
	}

	date, _, _ := strings.Cut(messages[0].Timestamp, "T")
	err := im.store.CreateNode(title, "conversation", map[string]any{
		"source":       "ChatGPT",
		"date":         date,
		"messageCount": len(messages),
	})
	switch {
	case err == nil:
		im.update(func(s *Status) { s.CreatedNodes++ })
	case apperrors.IsAlreadyExists(err):
		// Re-imported conversation, keep linking into the existing node
	default:
		im.update(func(s *Status) { s.Errors++ })
	}

	for _, message := range messages {
		if message.Role != "user" {
			continue
		}
		if len(message.Content) < im.minMessageLength {
			continue
		}

		candidates, err := im.extractor.ExtractEntities(ctx, message.Content)
		if err != nil {
			im.update(func(s *Status) { s.Errors++ })
			continue
		}

		for _, candidate := range candidates {
			im.linkEntity(title, candidate)
		}
	}
}

func (im *Importer) linkEntity(conversationID string, candidate adapter.EntityCandidate) {
	err := im.store.CreateNode(candidate.Label, candidate.Type, candidate.Metadata)
	switch {
	case err == nil:
		im.update(func(s *Status) { s.CreatedNodes++ })
	case apperrors.IsAlreadyExists(err):
		// Known entity, just link it
	default:
		im.update(func(s *Status) { s.Errors++ })
	}

	if err := im.store.CreateEdge(conversationID, candidate.Label, RelationContainsEntity); err != nil {
		im.update(func(s *Status) { s.Errors++ })
		return
	}
	im.update(func(s *Status) { s.CreatedLinks++ })
}

func (im *Importer) update(fn func(*Status)) {
	im.mu.Lock()
	defer im.mu.Unlock()
	fn(&im.status)
}

// eligibleMessages drops messages with no content and sorts the rest by
// timestamp. Lexical ordering is sufficient for ISO-8601 strings and keeps
// the sort stable for equal timestamps.
func eligibleMessages(messages []Message) []Message {
	eligible := make([]Message, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		eligible = append(eligible, m)
	}
	sort.SliceStable(eligible, func(a, b int) bool {
		return eligible[a].Timestamp < eligible[b].Timestamp
	})
	return eligible
}
