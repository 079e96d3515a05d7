package platform

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aiox-platform/mentionbot/internal/api"
)

// PostLookup fetches a single post.
type PostLookup interface {
	Tweet(ctx context.Context, id int64) (Post, error)
}

// Handler exposes post lookups to operators.
type Handler struct {
	lookup PostLookup
}

// NewHandler creates a new platform Handler.
func NewHandler(lookup PostLookup) *Handler {
	return &Handler{lookup: lookup}
}

// GetPost returns the normalized post named by the postID URL parameter.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil || postID <= 0 {
		api.HandleError(w, api.NewBadRequestError("invalid post ID"))
		return
	}

	post, err := h.lookup.Tweet(r.Context(), postID)
	if err != nil {
		var statusErr *StatusError
		switch {
		case errors.Is(err, ErrNotFound):
			api.HandleError(w, api.NewNotFoundError("post not found"))
		case errors.As(err, &statusErr):
			slog.Warn("platform: post lookup rejected", "post_id", postID, "status", statusErr.StatusCode)
			api.HandleError(w, api.NewUnavailableError("platform rejected the lookup"))
		default:
			slog.Error("platform: post lookup failed", "post_id", postID, "error", err)
			api.HandleError(w, api.ErrInternalServer)
		}
		return
	}

	api.JSON(w, http.StatusOK, post)
}
