// Package handler exposes the tag listing endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"conduit/internal/platform/middleware"
	"conduit/internal/transport/http/shared"
)

// Service defines the tag operations the handler needs.
type Service interface {
	List(ctx context.Context) ([]string, error)
}

// Handler handles the tag endpoint.
type Handler struct {
	logger *slog.Logger
	tags   Service
}

func New(tags Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, tags: tags}
}

// Register registers the tag routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/tags", h.handleList)
}

type tagsEnvelope struct {
	Tags []string `json:"tags"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list tags failed",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(r.Context()),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, tagsEnvelope{Tags: tags})
}
