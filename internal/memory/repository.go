package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// Repository defines memory and response-record persistence operations.
type Repository interface {
	ResponseExists(ctx context.Context, postID int64) (bool, error)
	InsertResponse(ctx context.Context, rec *ResponseRecord) (bool, error)
	GetResponse(ctx context.Context, postID int64) (*ResponseRecord, error)
	ListResponses(ctx context.Context, page, pageSize int) ([]ResponseRecord, error)
	CountResponses(ctx context.Context) (int64, error)

	CreateMemory(ctx context.Context, mem *Memory) error
	SearchSimilar(ctx context.Context, embedding []float32, limit int, threshold float64) ([]SearchResult, error)
	ListMemories(ctx context.Context, page, pageSize int) ([]Memory, error)
	CountMemories(ctx context.Context) (int64, error)
	DeleteMemory(ctx context.Context, id uuid.UUID) error
}

// PostgresRepository implements Repository using pgx + pgvector.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new memory repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) ResponseExists(ctx context.Context, postID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tweet_responses WHERE original_post_id = $1)`,
		postID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking response for %d: %w", postID, err)
	}
	return exists, nil
}

// InsertResponse stores rec unless a record for the same original post
// already exists. It reports whether a row was written.
func (r *PostgresRepository) InsertResponse(ctx context.Context, rec *ResponseRecord) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO tweet_responses
		   (original_post_id, response_post_id, author_handle, original_text, response_text, search_term, responded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (original_post_id) DO NOTHING`,
		rec.OriginalPostID, rec.ResponsePostID, rec.AuthorHandle, rec.OriginalText, rec.ResponseText, rec.SearchTerm, rec.RespondedAt,
	)
	if err != nil {
		return false, fmt.Errorf("inserting response for %d: %w", rec.OriginalPostID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) GetResponse(ctx context.Context, postID int64) (*ResponseRecord, error) {
	var rec ResponseRecord
	err := r.pool.QueryRow(ctx,
		`SELECT original_post_id, response_post_id, author_handle, original_text, response_text, search_term, responded_at
		 FROM tweet_responses
		 WHERE original_post_id = $1`,
		postID,
	).Scan(&rec.OriginalPostID, &rec.ResponsePostID, &rec.AuthorHandle, &rec.OriginalText, &rec.ResponseText, &rec.SearchTerm, &rec.RespondedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResponseNotFound
		}
		return nil, fmt.Errorf("getting response for %d: %w", postID, err)
	}
	return &rec, nil
}

func (r *PostgresRepository) ListResponses(ctx context.Context, page, pageSize int) ([]ResponseRecord, error) {
	offset := (page - 1) * pageSize
	rows, err := r.pool.Query(ctx,
		`SELECT original_post_id, response_post_id, author_handle, original_text, response_text, search_term, responded_at
		 FROM tweet_responses
		 ORDER BY responded_at DESC
		 LIMIT $1 OFFSET $2`,
		pageSize, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}
	defer rows.Close()

	var records []ResponseRecord
	for rows.Next() {
		var rec ResponseRecord
		if err := rows.Scan(&rec.OriginalPostID, &rec.ResponsePostID, &rec.AuthorHandle, &rec.OriginalText, &rec.ResponseText, &rec.SearchTerm, &rec.RespondedAt); err != nil {
			return nil, fmt.Errorf("scanning response: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresRepository) CountResponses(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tweet_responses`).Scan(&count)
	return count, err
}

func (r *PostgresRepository) CreateMemory(ctx context.Context, mem *Memory) error {
	if mem.ID == uuid.Nil {
		mem.ID = uuid.New()
	}

	metadataBytes := mem.Metadata
	if len(metadataBytes) == 0 {
		metadataBytes = json.RawMessage(`{}`)
	}

	var embedding any
	if len(mem.Embedding) > 0 {
		embedding = pgvector.NewVector(mem.Embedding)
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO memories (id, content, embedding, memory_type, metadata)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		mem.ID, mem.Content, embedding, mem.MemoryType, metadataBytes,
	).Scan(&mem.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting memory: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SearchSimilar(ctx context.Context, embedding []float32, limit int, threshold float64) ([]SearchResult, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx,
		`SELECT id, content, memory_type, metadata, created_at,
		        1 - (embedding <=> $1) AS similarity
		 FROM memories
		 WHERE embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching similar memories: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var m Memory
		var similarity float64
		if err := rows.Scan(&m.ID, &m.Content, &m.MemoryType, &m.Metadata, &m.CreatedAt, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, SearchResult{Memory: m, Similarity: similarity})
	}
	return results, rows.Err()
}

func (r *PostgresRepository) ListMemories(ctx context.Context, page, pageSize int) ([]Memory, error) {
	offset := (page - 1) * pageSize
	rows, err := r.pool.Query(ctx,
		`SELECT id, content, memory_type, metadata, created_at
		 FROM memories
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		pageSize, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}
	defer rows.Close()

	var memories []Memory
	for rows.Next() {
		var m Memory
		if err := rows.Scan(&m.ID, &m.Content, &m.MemoryType, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning memory: %w", err)
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func (r *PostgresRepository) CountMemories(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM memories`).Scan(&count)
	return count, err
}

func (r *PostgresRepository) DeleteMemory(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting memory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemoryNotFound
	}
	return nil
}
