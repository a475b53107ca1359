// Package handler exposes comment endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"conduit/internal/comment/models"
	"conduit/internal/platform/middleware"
	"conduit/internal/transport/http/shared"
	usermodel "conduit/internal/user/models"
	"conduit/pkg/domainerrors"
)

// Service defines the comment operations the handler needs.
type Service interface {
	Add(ctx context.Context, authorID uuid.UUID, slug, body string) (*models.View, error)
	List(ctx context.Context, slug string, viewerID uuid.UUID) ([]*models.View, error)
	Delete(ctx context.Context, userID uuid.UUID, slug string, commentID uuid.UUID) error
}

// Handler handles comment endpoints.
type Handler struct {
	logger       *slog.Logger
	comments     Service
	jwtValidator middleware.JWTValidator
}

func New(comments Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		comments:     comments,
		jwtValidator: jwtValidator,
	}
}

// Register registers the comment routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/articles/{slug}/comments", h.handleAdd)
		r.Delete("/articles/{slug}/comments/{id}", h.handleDelete)
	})

	r.With(middleware.OptionalAuth(h.jwtValidator, h.logger)).
		Get("/articles/{slug}/comments", h.handleList)
}

type commentBody struct {
	ID        uuid.UUID  `json:"id"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Author    authorBody `json:"author"`
}

type authorBody struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

type commentEnvelope struct {
	Comment commentBody `json:"comment"`
}

type commentsEnvelope struct {
	Comments []commentBody `json:"comments"`
}

func toAuthorBody(p usermodel.Profile) authorBody {
	return authorBody{
		Username:  p.Username,
		Bio:       p.Bio,
		Image:     p.Image,
		Following: p.Following,
	}
}

func toCommentBody(v *models.View) commentBody {
	return commentBody{
		ID:        v.ID,
		Body:      v.Body,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
		Author:    toAuthorBody(v.Author),
	}
}

type addRequest struct {
	Comment struct {
		Body string `json:"body"`
	} `json:"comment"`
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid request body"))
		return
	}

	userID, _ := middleware.GetUserID(r.Context())
	view, err := h.comments.Add(r.Context(), userID, chi.URLParam(r, "slug"), req.Comment.Body)
	if err != nil {
		h.logError(r.Context(), "add comment failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, commentEnvelope{Comment: toCommentBody(view)})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.GetUserID(r.Context())
	views, err := h.comments.List(r.Context(), chi.URLParam(r, "slug"), viewerID)
	if err != nil {
		h.logError(r.Context(), "list comments failed", err)
		shared.WriteError(w, err)
		return
	}
	bodies := make([]commentBody, 0, len(views))
	for _, v := range views {
		bodies = append(bodies, toCommentBody(v))
	}
	shared.WriteJSON(w, http.StatusOK, commentsEnvelope{Comments: bodies})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	commentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid comment id"))
		return
	}

	userID, _ := middleware.GetUserID(r.Context())
	if err := h.comments.Delete(r.Context(), userID, chi.URLParam(r, "slug"), commentID); err != nil {
		h.logError(r.Context(), "delete comment failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	attrs := []any{
		"error", err.Error(),
		"request_id", middleware.GetRequestID(ctx),
	}
	if domainerrors.KindOf(err) == domainerrors.KindInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}
