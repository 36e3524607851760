package adapter

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sashabaranov/go-openai"
	apperrors "mnemos/backend/pkg/errors"
	"mnemos/backend/pkg/logger"
	"go.uber.org/zap"
)

// EntityCandidate is one entity proposed by the extraction collaborator.
// The payload is untrusted: missing fields are defaulted rather than
// rejected, so a sloppy model response still yields usable nodes.
type EntityCandidate struct {
	Label    string         `json:"label"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"meta"`
}

// LLMAdapter handles communication with the OpenAI-compatible provider for
// all three collaborator roles: embeddings, entity extraction, and answer
// generation. Calls are not retried; a failed call surfaces a typed error
// and the caller decides how to degrade.
type LLMAdapter struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	logger         *zap.Logger
}

// NewLLMAdapter creates a new LLM adapter
func NewLLMAdapter(baseURL, apiKey, chatModel, embeddingModel string) *LLMAdapter {
	// A dummy key keeps local gateways happy when no real key is configured
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL + "/v1"

	return &LLMAdapter{
		client:         openai.NewClientWithConfig(config),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		logger:         logger.Get(),
	}
}

// Embed returns the embedding vector for a piece of text
func (a *LLMAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(a.embeddingModel),
	})
	if err != nil {
		a.logger.Warn("Embedding request failed",
			zap.String("model", a.embeddingModel),
			zap.Error(err),
		)
		return nil, apperrors.NewEmbeddingFailure(a.embeddingModel, err)
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewEmbeddingFailure(a.embeddingModel, nil)
	}
	return resp.Data[0].Embedding, nil
}

// ExtractEntities asks the chat model for the entities mentioned in a
// message and parses its structured response
func (a *LLMAdapter) ExtractEntities(ctx context.Context, text string) ([]EntityCandidate, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: entityPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		a.logger.Warn("Entity extraction request failed",
			zap.String("model", a.chatModel),
			zap.Error(err),
		)
		return nil, apperrors.NewExtractionFailure(a.chatModel, err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewExtractionFailure(a.chatModel, nil)
	}

	candidates, err := ParseEntityCandidates(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Entities extracted",
		zap.String("model", a.chatModel),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// Answer generates a free-text answer to the query given the retrieved
// graph context
func (a *LLMAdapter) Answer(ctx context.Context, graphContext, query string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: answerPrompt(graphContext)},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	})
	if err != nil {
		return "", apperrors.NewBaseError(apperrors.ErrorTypeLLM, "answer generation failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewBaseError(apperrors.ErrorTypeLLM, "no choices in answer response", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// ParseEntityCandidates decodes the extraction collaborator's raw output.
// Markdown code fences are stripped first since chat models often wrap JSON
// in them. Candidates with no usable shape fail with ParseFailure; missing
// fields inside otherwise valid candidates are defaulted.
func ParseEntityCandidates(raw string) ([]EntityCandidate, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var candidates []EntityCandidate
	if err := json.Unmarshal([]byte(cleaned), &candidates); err != nil {
		return nil, apperrors.NewParseFailure(raw, err)
	}

	for i := range candidates {
		if candidates[i].Label == "" {
			candidates[i].Label = "Unnamed"
		}
		if candidates[i].Type == "" {
			candidates[i].Type = "concept"
		}
		if candidates[i].Metadata == nil {
			candidates[i].Metadata = map[string]any{}
		}
	}
	return candidates, nil
}
