// Package handler exposes account and profile endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"conduit/internal/platform/middleware"
	"conduit/internal/transport/http/shared"
	"conduit/internal/user/models"
	"conduit/internal/user/service"
	"conduit/pkg/domainerrors"
)

// Service defines the account and profile operations the handler needs.
type Service interface {
	Register(ctx context.Context, input models.NewUserInput) (*service.AuthenticatedUser, error)
	Login(ctx context.Context, email, password string, client service.ClientInfo) (*service.AuthenticatedUser, error)
	GetCurrent(ctx context.Context, userID uuid.UUID) (*models.User, error)
	Update(ctx context.Context, userID uuid.UUID, input models.UpdateUserInput) (*models.User, error)
	Profile(ctx context.Context, username string, viewerID uuid.UUID) (*models.Profile, error)
	Follow(ctx context.Context, followerID uuid.UUID, username string) (*models.Profile, error)
	Unfollow(ctx context.Context, followerID uuid.UUID, username string) (*models.Profile, error)
}

// Handler handles user and profile endpoints.
type Handler struct {
	logger       *slog.Logger
	users        Service
	jwtValidator middleware.JWTValidator
}

func New(users Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		users:        users,
		jwtValidator: jwtValidator,
	}
}

// Register registers the user and profile routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/users", h.handleRegister)
	r.Post("/users/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/user", h.handleGetCurrent)
		r.Put("/user", h.handleUpdate)
		r.Post("/profiles/{username}/follow", h.handleFollow)
		r.Delete("/profiles/{username}/follow", h.handleUnfollow)
	})

	r.With(middleware.OptionalAuth(h.jwtValidator, h.logger)).
		Get("/profiles/{username}", h.handleGetProfile)
}

type userBody struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

type userEnvelope struct {
	User userBody `json:"user"`
}

type profileEnvelope struct {
	Profile profileBody `json:"profile"`
}

type profileBody struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

func toUserEnvelope(u *models.User, token string) userEnvelope {
	return userEnvelope{User: userBody{
		Email:    u.Email,
		Token:    token,
		Username: u.Username,
		Bio:      u.Bio,
		Image:    u.Image,
	}}
}

func toProfileEnvelope(p *models.Profile) profileEnvelope {
	return profileEnvelope{Profile: profileBody{
		Username:  p.Username,
		Bio:       p.Bio,
		Image:     p.Image,
		Following: p.Following,
	}}
}

type registerRequest struct {
	User struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"user"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid request body"))
		return
	}

	auth, err := h.users.Register(r.Context(), models.NewUserInput{
		Username: req.User.Username,
		Email:    req.User.Email,
		Password: req.User.Password,
	})
	if err != nil {
		h.logError(r.Context(), "register failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toUserEnvelope(auth.User, auth.Token))
}

type loginRequest struct {
	User struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid request body"))
		return
	}

	auth, err := h.users.Login(r.Context(), req.User.Email, req.User.Password, service.ClientInfo{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.logError(r.Context(), "login failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toUserEnvelope(auth.User, auth.Token))
}

func (h *Handler) handleGetCurrent(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	user, err := h.users.GetCurrent(r.Context(), userID)
	if err != nil {
		h.logError(r.Context(), "get current user failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toUserEnvelope(user, middleware.GetToken(r.Context())))
}

type updateRequest struct {
	User struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
		Bio      *string `json:"bio"`
		Image    *string `json:"image"`
	} `json:"user"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid request body"))
		return
	}

	userID, _ := middleware.GetUserID(r.Context())
	user, err := h.users.Update(r.Context(), userID, models.UpdateUserInput{
		Username: req.User.Username,
		Email:    req.User.Email,
		Password: req.User.Password,
		Bio:      req.User.Bio,
		Image:    req.User.Image,
	})
	if err != nil {
		h.logError(r.Context(), "update user failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toUserEnvelope(user, middleware.GetToken(r.Context())))
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.GetUserID(r.Context())
	profile, err := h.users.Profile(r.Context(), chi.URLParam(r, "username"), viewerID)
	if err != nil {
		h.logError(r.Context(), "get profile failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toProfileEnvelope(profile))
}

func (h *Handler) handleFollow(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	profile, err := h.users.Follow(r.Context(), userID, chi.URLParam(r, "username"))
	if err != nil {
		h.logError(r.Context(), "follow failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toProfileEnvelope(profile))
}

func (h *Handler) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	profile, err := h.users.Unfollow(r.Context(), userID, chi.URLParam(r, "username"))
	if err != nil {
		h.logError(r.Context(), "unfollow failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toProfileEnvelope(profile))
}

// logError logs at a level matching the error class: client mistakes are
// warnings, everything else is an error.
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

// clientIP extracts the originating address, honoring X-Forwarded-For when a
// proxy set it.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
