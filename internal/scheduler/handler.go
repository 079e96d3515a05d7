package scheduler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aiox-platform/mentionbot/internal/api"
	"github.com/aiox-platform/mentionbot/internal/auth"
)

// Handler exposes manual cycle triggers over HTTP.
type Handler struct {
	sched *Scheduler
}

// NewHandler creates a new scheduler Handler.
func NewHandler(sched *Scheduler) *Handler {
	return &Handler{sched: sched}
}

// Trigger queues the cycle named by the kind URL parameter.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	if err := h.sched.Trigger(kind); err != nil {
		switch {
		case errors.Is(err, ErrUnknownCycle):
			api.HandleError(w, api.NewNotFoundError("unknown cycle: "+kind))
		case errors.Is(err, ErrCyclePending):
			api.HandleError(w, api.ErrBusy)
		default:
			api.HandleError(w, api.ErrInternalServer)
		}
		return
	}

	operator := ""
	if claims := auth.GetOperatorClaims(r.Context()); claims != nil {
		operator = claims.Operator
	}
	slog.Info("scheduler: cycle triggered over http", "cycle", kind, "operator", operator)

	api.JSONMessage(w, http.StatusAccepted, kind+" cycle queued")
}
