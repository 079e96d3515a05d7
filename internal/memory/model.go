package memory

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMemoryNotFound   = errors.New("memory not found")
	ErrResponseNotFound = errors.New("response not found")

	ErrEmbeddingUnavailable = errors.New("embedding model not configured")
)

// ResponseRecord marks a post as answered. There is at most one per original post.
type ResponseRecord struct {
	OriginalPostID int64     `json:"original_post_id"`
	ResponsePostID int64     `json:"response_post_id"`
	AuthorHandle   string    `json:"author_handle"`
	OriginalText   string    `json:"original_text"`
	ResponseText   string    `json:"response_text"`
	SearchTerm     string    `json:"search_term"`
	RespondedAt    time.Time `json:"responded_at"`
}

// Memory represents a row in the memories table: a piece of knowledge the
// bot can draw on when replying.
type Memory struct {
	ID         uuid.UUID       `json:"id"`
	Content    string          `json:"content"`
	Embedding  []float32       `json:"embedding,omitempty"`
	MemoryType string          `json:"memory_type"`
	Metadata   json.RawMessage `json:"metadata"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CreateMemoryRequest is used by the API to seed a new memory.
type CreateMemoryRequest struct {
	Content    string          `json:"content" validate:"required,min=1"`
	MemoryType string          `json:"memory_type" validate:"required,oneof=knowledge persona event"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// SearchMemoryRequest is used by the API to search memories by text.
type SearchMemoryRequest struct {
	Query     string  `json:"query" validate:"required,min=1"`
	Limit     int     `json:"limit,omitempty" validate:"gte=0,lte=50"`
	Threshold float64 `json:"threshold,omitempty" validate:"gte=0,lte=1"`
}

// SearchResult wraps a Memory with its similarity score.
type SearchResult struct {
	Memory     Memory  `json:"memory"`
	Similarity float64 `json:"similarity"`
}
