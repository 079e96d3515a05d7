package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Get("/memories", h.List)
	r.Post("/memories", h.Create)
	r.Post("/memories/search", h.Search)
	r.Delete("/memories/{memoryID}", h.Delete)
	r.Get("/responses", h.ListResponses)
	r.Get("/responses/{postID}", h.GetResponse)
	return r
}

func TestHandler_CreateValidates(t *testing.T) {
	router := newTestRouter(NewService(newFakeRepo(), nil, nil, DefaultConfig()))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"content":"rice is life","memory_type":"knowledge"}`, http.StatusCreated},
		{"missing content", `{"memory_type":"knowledge"}`, http.StatusBadRequest},
		{"unknown type", `{"content":"x","memory_type":"gossip"}`, http.StatusBadRequest},
		{"not json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/memories", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHandler_SearchWithoutEmbedder(t *testing.T) {
	router := newTestRouter(NewService(newFakeRepo(), nil, nil, DefaultConfig()))

	req := httptest.NewRequest(http.MethodPost, "/memories/search", strings.NewReader(`{"query":"rice"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandler_DeleteMemory(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, DefaultConfig())
	router := newTestRouter(svc)

	mem, err := svc.Create(context.Background(), &CreateMemoryRequest{Content: "x", MemoryType: "event"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/memories/"+mem.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/memories/"+mem.ID.String(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/memories/not-a-uuid", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Responses(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, DefaultConfig())
	router := newTestRouter(svc)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Put(ctx, ResponseRecord{OriginalPostID: 5, ResponsePostID: 50, RespondedAt: base}))
	require.NoError(t, svc.Put(ctx, ResponseRecord{OriginalPostID: 7, ResponsePostID: 70, RespondedAt: base.Add(time.Minute)}))

	t.Run("list newest first", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/responses?page_size=1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Data       []ResponseRecord `json:"data"`
			TotalCount int64            `json:"total_count"`
			PageSize   int              `json:"page_size"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, int64(2), body.TotalCount)
		assert.Equal(t, 1, body.PageSize)
		require.Len(t, body.Data, 1)
		assert.Equal(t, int64(7), body.Data[0].OriginalPostID)
	})

	t.Run("get one", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/responses/5", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"response_post_id":50`)
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/responses/999", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/responses/abc", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
