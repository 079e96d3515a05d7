package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service orchestrates response records and long-term memories (pgvector)
// with per-account interaction history (Redis).
type Service struct {
	repo      Repository
	shortTerm *ShortTermStore
	embedder  Embedder
	cfg       Config
	now       func() time.Time
}

// NewService creates a new memory service. shortTerm and embedder may be nil,
// which disables per-account history and similarity search respectively.
func NewService(repo Repository, shortTerm *ShortTermStore, embedder Embedder, cfg Config) *Service {
	return &Service{
		repo:      repo,
		shortTerm: shortTerm,
		embedder:  embedder,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Exists reports whether a response has already been recorded for postID.
func (s *Service) Exists(ctx context.Context, postID int64) (bool, error) {
	return s.repo.ResponseExists(ctx, postID)
}

// Put records a response. Recording the same original post twice is a no-op.
func (s *Service) Put(ctx context.Context, rec ResponseRecord) error {
	if rec.RespondedAt.IsZero() {
		rec.RespondedAt = s.now().UTC()
	}
	inserted, err := s.repo.InsertResponse(ctx, &rec)
	if err != nil {
		return err
	}
	if !inserted {
		slog.Debug("memory: response already recorded", "post_id", rec.OriginalPostID)
	}
	return nil
}

// FetchContext returns knowledge related to topic, one memory per line, or
// an empty string when long-term memory is unavailable or nothing matches.
func (s *Service) FetchContext(ctx context.Context, topic string) (string, error) {
	if !s.cfg.LongTermEnabled || s.embedder == nil || topic == "" {
		return "", nil
	}

	vec, err := s.embedder.Embed(ctx, topic)
	if err != nil {
		return "", fmt.Errorf("embedding topic: %w", err)
	}
	results, err := s.repo.SearchSimilar(ctx, vec, s.cfg.MaxLongTermResults, s.cfg.SimilarityThreshold)
	if err != nil {
		return "", err
	}
	return formatMemories(results), nil
}

// UserContext returns what the bot remembers about handle.
func (s *Service) UserContext(ctx context.Context, handle string) (string, error) {
	if !s.cfg.ShortTermEnabled || s.shortTerm == nil {
		return "", nil
	}
	entries, err := s.shortTerm.GetRecent(ctx, handle, s.cfg.MaxShortTermMsgs)
	if err != nil {
		return "", err
	}
	return formatInteractions(handle, entries), nil
}

// UpdateUserContext appends an interaction summary to handle's history.
func (s *Service) UpdateUserContext(ctx context.Context, handle, interaction, additionalContext string) error {
	if !s.cfg.ShortTermEnabled || s.shortTerm == nil {
		return nil
	}
	entry := InteractionEntry{
		Summary:   interaction,
		Context:   additionalContext,
		Timestamp: s.now().UTC(),
	}
	if err := s.shortTerm.Append(ctx, handle, entry, s.cfg.MaxShortTermMsgs, s.cfg.ShortTermTTLSec); err != nil {
		return fmt.Errorf("appending interaction for %s: %w", handle, err)
	}
	return nil
}

// ListResponses returns paginated response records, newest first.
func (s *Service) ListResponses(ctx context.Context, page, pageSize int) ([]ResponseRecord, int64, error) {
	records, err := s.repo.ListResponses(ctx, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.CountResponses(ctx)
	if err != nil {
		return nil, 0, err
	}
	return records, count, nil
}

// GetResponse returns the response record for postID.
func (s *Service) GetResponse(ctx context.Context, postID int64) (*ResponseRecord, error) {
	return s.repo.GetResponse(ctx, postID)
}

// List returns paginated memories.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]Memory, int64, error) {
	memories, err := s.repo.ListMemories(ctx, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.CountMemories(ctx)
	if err != nil {
		return nil, 0, err
	}
	return memories, count, nil
}

// Create stores a new memory. When an embedder is configured the content is
// embedded; an embedding failure stores the memory without a vector.
func (s *Service) Create(ctx context.Context, req *CreateMemoryRequest) (*Memory, error) {
	mem := &Memory{
		ID:         uuid.New(),
		Content:    req.Content,
		MemoryType: req.MemoryType,
		Metadata:   req.Metadata,
		CreatedAt:  s.now().UTC(),
	}
	if len(mem.Metadata) == 0 {
		mem.Metadata = json.RawMessage(`{}`)
	}

	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, req.Content)
		if err != nil {
			slog.Warn("memory: embedding failed, storing without vector", "error", err, "memory_id", mem.ID)
		} else {
			mem.Embedding = vec
		}
	}

	if err := s.repo.CreateMemory(ctx, mem); err != nil {
		return nil, err
	}
	return mem, nil
}

// Search performs a similarity search over memories for a text query.
func (s *Service) Search(ctx context.Context, req *SearchMemoryRequest) ([]SearchResult, error) {
	if s.embedder == nil {
		return nil, ErrEmbeddingUnavailable
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.MaxLongTermResults
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = s.cfg.SimilarityThreshold
	}

	vec, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return s.repo.SearchSimilar(ctx, vec, limit, threshold)
}

// Delete deletes a single memory.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteMemory(ctx, id)
}
