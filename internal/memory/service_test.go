package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu        sync.Mutex
	responses map[int64]ResponseRecord
	memories  []Memory
	searchErr error
	existsErr error
	lastLimit int
	lastThr   float64
	results   []SearchResult
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{responses: map[int64]ResponseRecord{}}
}

func (f *fakeRepo) ResponseExists(_ context.Context, postID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.responses[postID]
	return ok, nil
}

func (f *fakeRepo) InsertResponse(_ context.Context, rec *ResponseRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.responses[rec.OriginalPostID]; ok {
		return false, nil
	}
	f.responses[rec.OriginalPostID] = *rec
	return true, nil
}

func (f *fakeRepo) GetResponse(_ context.Context, postID int64) (*ResponseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.responses[postID]
	if !ok {
		return nil, ErrResponseNotFound
	}
	return &rec, nil
}

func (f *fakeRepo) ListResponses(_ context.Context, page, pageSize int) ([]ResponseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []ResponseRecord
	for _, r := range f.responses {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RespondedAt.After(all[j].RespondedAt) })
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, nil
	}
	return all[start:min(start+pageSize, len(all))], nil
}

func (f *fakeRepo) CountResponses(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.responses)), nil
}

func (f *fakeRepo) CreateMemory(_ context.Context, mem *Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memories = append(f.memories, *mem)
	return nil
}

func (f *fakeRepo) SearchSimilar(_ context.Context, _ []float32, limit int, threshold float64) ([]SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	f.lastThr = threshold
	return f.results, f.searchErr
}

func (f *fakeRepo) ListMemories(_ context.Context, _, _ int) ([]Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.memories, nil
}

func (f *fakeRepo) CountMemories(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.memories)), nil
}

func (f *fakeRepo) DeleteMemory(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.memories {
		if m.ID == id {
			f.memories = append(f.memories[:i], f.memories[i+1:]...)
			return nil
		}
	}
	return ErrMemoryNotFound
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func TestService_PutIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, ResponseRecord{OriginalPostID: 42, ResponseText: "first"}))
	require.NoError(t, svc.Put(ctx, ResponseRecord{OriginalPostID: 42, ResponseText: "second"}))

	exists, err := svc.Exists(ctx, 42)
	require.NoError(t, err)
	assert.True(t, exists)

	rec, err := svc.GetResponse(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "first", rec.ResponseText)
	assert.False(t, rec.RespondedAt.IsZero())
}

func TestService_ExistsPropagatesErrors(t *testing.T) {
	repo := newFakeRepo()
	repo.existsErr = errors.New("db down")
	svc := NewService(repo, nil, nil, DefaultConfig())

	_, err := svc.Exists(context.Background(), 1)
	assert.Error(t, err)
}

func TestService_FetchContext(t *testing.T) {
	repo := newFakeRepo()
	repo.results = []SearchResult{
		{Memory: Memory{Content: "rice grows in paddies", MemoryType: "knowledge"}, Similarity: 0.9},
		{Memory: Memory{Content: "be kind", MemoryType: "persona"}, Similarity: 0.8},
	}
	svc := NewService(repo, nil, &fakeEmbedder{}, DefaultConfig())

	out, err := svc.FetchContext(context.Background(), "tell me about rice")
	require.NoError(t, err)
	assert.Equal(t, "- (knowledge) rice grows in paddies\n- (persona) be kind", out)
	assert.Equal(t, 5, repo.lastLimit)
	assert.Equal(t, 0.7, repo.lastThr)
}

func TestService_FetchContextDisabled(t *testing.T) {
	emb := &fakeEmbedder{}
	cfg := DefaultConfig()
	cfg.LongTermEnabled = false
	svc := NewService(newFakeRepo(), nil, emb, cfg)

	out, err := svc.FetchContext(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, emb.calls)

	svc = NewService(newFakeRepo(), nil, nil, DefaultConfig())
	out, err = svc.FetchContext(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestService_FetchContextEmbedError(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, &fakeEmbedder{err: errors.New("quota")}, DefaultConfig())

	_, err := svc.FetchContext(context.Background(), "anything")
	assert.Error(t, err)
}

func TestService_UserContextRoundTrip(t *testing.T) {
	store, _ := setupMiniredis(t)
	svc := NewService(newFakeRepo(), store, nil, DefaultConfig())
	fixed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	out, err := svc.UserContext(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, out)

	require.NoError(t, svc.UpdateUserContext(ctx, "alice", "alice asked about rice; replied with a recipe", "extra"))

	out, err = svc.UserContext(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Previous interactions with @alice:\n- [2026-05-01T10:00:00Z] alice asked about rice; replied with a recipe", out)
}

func TestService_UserContextDisabled(t *testing.T) {
	store, _ := setupMiniredis(t)
	cfg := DefaultConfig()
	cfg.ShortTermEnabled = false
	svc := NewService(newFakeRepo(), store, nil, cfg)
	ctx := context.Background()

	require.NoError(t, svc.UpdateUserContext(ctx, "bob", "hi", ""))
	entries, err := store.GetRecent(ctx, "bob", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_CreateEmbedsContent(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, &fakeEmbedder{}, DefaultConfig())

	mem, err := svc.Create(context.Background(), &CreateMemoryRequest{Content: "hello", MemoryType: "knowledge"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, mem.ID)
	assert.Len(t, mem.Embedding, 3)
	assert.JSONEq(t, `{}`, string(mem.Metadata))
	require.Len(t, repo.memories, 1)
}

func TestService_CreateWithoutEmbeddingOnFailure(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, &fakeEmbedder{err: errors.New("boom")}, DefaultConfig())

	mem, err := svc.Create(context.Background(), &CreateMemoryRequest{Content: "hello", MemoryType: "knowledge"})
	require.NoError(t, err)
	assert.Empty(t, mem.Embedding)
}

func TestService_SearchRequiresEmbedder(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, DefaultConfig())

	_, err := svc.Search(context.Background(), &SearchMemoryRequest{Query: "x"})
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestService_SearchDefaults(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, &fakeEmbedder{}, DefaultConfig())

	_, err := svc.Search(context.Background(), &SearchMemoryRequest{Query: "x", Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, repo.lastLimit)
	assert.Equal(t, 0.7, repo.lastThr)
}
