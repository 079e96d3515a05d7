package memory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aiox-platform/mentionbot/internal/api"
)

// Handler handles memory and response-record HTTP endpoints.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

// NewHandler creates a new memory handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

func pagination(r *http.Request) (int, int) {
	page := 1
	pageSize := 20
	if p := r.URL.Query().Get("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize
}

// List returns paginated memories.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)

	memories, totalCount, err := h.svc.List(r.Context(), page, pageSize)
	if err != nil {
		slog.Error("listing memories", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, memories, totalCount, page, pageSize)
}

// Create seeds a new memory.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	mem, err := h.svc.Create(r.Context(), &req)
	if err != nil {
		slog.Error("creating memory", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, mem)
}

// Search performs a similarity search over memories.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	results, err := h.svc.Search(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrEmbeddingUnavailable) {
			api.HandleError(w, api.NewUnavailableError(err.Error()))
			return
		}
		slog.Error("searching memories", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, results)
}

// Delete deletes a single memory.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	memoryID, err := uuid.Parse(chi.URLParam(r, "memoryID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid memory ID"))
		return
	}

	if err := h.svc.Delete(r.Context(), memoryID); err != nil {
		if errors.Is(err, ErrMemoryNotFound) {
			api.HandleError(w, api.NewNotFoundError("memory not found"))
			return
		}
		slog.Error("deleting memory", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "memory deleted successfully")
}

// ListResponses returns paginated response records.
func (h *Handler) ListResponses(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)

	records, totalCount, err := h.svc.ListResponses(r.Context(), page, pageSize)
	if err != nil {
		slog.Error("listing responses", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, records, totalCount, page, pageSize)
}

// GetResponse returns the response record for one original post.
func (h *Handler) GetResponse(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil || postID <= 0 {
		api.HandleError(w, api.NewBadRequestError("invalid post ID"))
		return
	}

	rec, err := h.svc.GetResponse(r.Context(), postID)
	if err != nil {
		if errors.Is(err, ErrResponseNotFound) {
			api.HandleError(w, api.NewNotFoundError("response not found"))
			return
		}
		slog.Error("getting response", "error", err, "post_id", postID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, rec)
}
