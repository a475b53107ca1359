// Package handler exposes article endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"conduit/internal/article/models"
	"conduit/internal/platform/middleware"
	"conduit/internal/transport/http/shared"
	usermodel "conduit/internal/user/models"
	"conduit/pkg/domainerrors"
)

// Service defines the article operations the handler needs.
type Service interface {
	Create(ctx context.Context, authorID uuid.UUID, input models.NewArticleInput) (*models.View, error)
	Get(ctx context.Context, slug string, viewerID uuid.UUID) (*models.View, error)
	List(ctx context.Context, filter models.ListFilter, viewerID uuid.UUID) ([]*models.View, int, error)
	Feed(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]*models.View, int, error)
	Update(ctx context.Context, userID uuid.UUID, slug string, input models.UpdateArticleInput) (*models.View, error)
	Delete(ctx context.Context, userID uuid.UUID, slug string) error
	Favorite(ctx context.Context, userID uuid.UUID, slug string) (*models.View, error)
	Unfavorite(ctx context.Context, userID uuid.UUID, slug string) (*models.View, error)
}

// Handler handles article endpoints.
type Handler struct {
	logger       *slog.Logger
	articles     Service
	jwtValidator middleware.JWTValidator
}

func New(articles Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		articles:     articles,
		jwtValidator: jwtValidator,
	}
}

// Register registers the article routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/articles", h.handleCreate)
		r.Get("/articles/feed", h.handleFeed)
		r.Put("/articles/{slug}", h.handleUpdate)
		r.Delete("/articles/{slug}", h.handleDelete)
		r.Post("/articles/{slug}/favorite", h.handleFavorite)
		r.Delete("/articles/{slug}/favorite", h.handleUnfavorite)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(h.jwtValidator, h.logger))
		r.Get("/articles", h.handleList)
		r.Get("/articles/{slug}", h.handleGet)
	})
}

type authorBody struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

type articleBody struct {
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Body           string    `json:"body"`
	TagList        []string  `json:"tagList"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Favorited      bool      `json:"favorited"`
	FavoritesCount int       `json:"favoritesCount"`
	Author         authorBody `json:"author"`
}

type articleEnvelope struct {
	Article articleBody `json:"article"`
}

type articlesEnvelope struct {
	Articles      []articleBody `json:"articles"`
	ArticlesCount int           `json:"articlesCount"`
}

func toAuthorBody(p usermodel.Profile) authorBody {
	return authorBody{
		Username:  p.Username,
		Bio:       p.Bio,
		Image:     p.Image,
		Following: p.Following,
	}
}

func toArticleBody(v *models.View) articleBody {
	return articleBody{
		Slug:           v.Slug,
		Title:          v.Title,
		Description:    v.Description,
		Body:           v.Body,
		TagList:        v.TagList,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
		Favorited:      v.Favorited,
		FavoritesCount: v.FavoritesCount,
		Author:         toAuthorBody(v.Author),
	}
}

func toArticlesEnvelope(views []*models.View, total int) articlesEnvelope {
	bodies := make([]articleBody, 0, len(views))
	for _, v := range views {
		bodies = append(bodies, toArticleBody(v))
	}
	return articlesEnvelope{Articles: bodies, ArticlesCount: total}
}

type createRequest struct {
	Article struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Body        string   `json:"body"`
		TagList     []string `json:"tagList"`
	} `json:"article"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid request body"))
		return
	}

	userID, _ := middleware.GetUserID(r.Context())
	view, err := h.articles.Create(r.Context(), userID, models.NewArticleInput{
		Title:       req.Article.Title,
		Description: req.Article.Description,
		Body:        req.Article.Body,
		TagList:     req.Article.TagList,
	})
	if err != nil {
		h.logError(r.Context(), "create article failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, articleEnvelope{Article: toArticleBody(view)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.GetUserID(r.Context())
	view, err := h.articles.Get(r.Context(), chi.URLParam(r, "slug"), viewerID)
	if err != nil {
		h.logError(r.Context(), "get article failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, articleEnvelope{Article: toArticleBody(view)})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ListFilter{
		Tag:         q.Get("tag"),
		Author:      q.Get("author"),
		FavoritedBy: q.Get("favorited"),
		Limit:       intParam(q.Get("limit")),
		Offset:      intParam(q.Get("offset")),
	}

	viewerID, _ := middleware.GetUserID(r.Context())
	views, total, err := h.articles.List(r.Context(), filter, viewerID)
	if err != nil {
		h.logError(r.Context(), "list articles failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toArticlesEnvelope(views, total))
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, _ := middleware.GetUserID(r.Context())
	views, total, err := h.articles.Feed(r.Context(), userID, intParam(q.Get("limit")), intParam(q.Get("offset")))
	if err != nil {
		h.logError(r.Context(), "feed failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toArticlesEnvelope(views, total))
}

type updateRequest struct {
	Article struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Body        *string `json:"body"`
	} `json:"article"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid request body"))
		return
	}

	userID, _ := middleware.GetUserID(r.Context())
	view, err := h.articles.Update(r.Context(), userID, chi.URLParam(r, "slug"), models.UpdateArticleInput{
		Title:       req.Article.Title,
		Description: req.Article.Description,
		Body:        req.Article.Body,
	})
	if err != nil {
		h.logError(r.Context(), "update article failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, articleEnvelope{Article: toArticleBody(view)})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	if err := h.articles.Delete(r.Context(), userID, chi.URLParam(r, "slug")); err != nil {
		h.logError(r.Context(), "delete article failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleFavorite(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	view, err := h.articles.Favorite(r.Context(), userID, chi.URLParam(r, "slug"))
	if err != nil {
		h.logError(r.Context(), "favorite failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, articleEnvelope{Article: toArticleBody(view)})
}

func (h *Handler) handleUnfavorite(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	view, err := h.articles.Unfavorite(r.Context(), userID, chi.URLParam(r, "slug"))
	if err != nil {
		h.logError(r.Context(), "unfavorite failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, articleEnvelope{Article: toArticleBody(view)})
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

func intParam(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
