package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	UserID   string
	Username string
}

// JWTValidator defines the interface for validating JWT tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

type contextKeyUserID struct{}
type contextKeyUsername struct{}
type contextKeyToken struct{}

// GetUserID retrieves the authenticated user ID from the context. The second
// return is false for unauthenticated requests.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(contextKeyUserID{}).(uuid.UUID)
	return userID, ok
}

// GetUsername retrieves the authenticated username from the context.
func GetUsername(ctx context.Context) string {
	username, _ := ctx.Value(contextKeyUsername{}).(string)
	return username
}

// GetToken retrieves the raw bearer token from the context. Handlers echo it
// back in user responses.
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(contextKeyToken{}).(string)
	return token
}

// WithIdentity returns a context carrying an authenticated identity, for
// tests that call handlers directly.
func WithIdentity(ctx context.Context, userID uuid.UUID, username string) context.Context {
	ctx = context.WithValue(ctx, contextKeyUserID{}, userID)
	return context.WithValue(ctx, contextKeyUsername{}, username)
}

// extractToken pulls the credential out of the Authorization header. Both the
// "Token" scheme used by API clients and the more common "Bearer" are
// accepted.
func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	for _, prefix := range []string{"Token ", "Bearer "} {
		if token, ok := strings.CutPrefix(header, prefix); ok && token != "" {
			return token, true
		}
	}
	return "", false
}

func authenticate(ctx context.Context, validator JWTValidator, token string) (context.Context, error) {
	claims, err := validator.ValidateToken(token)
	if err != nil {
		return ctx, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return ctx, err
	}
	ctx = context.WithValue(ctx, contextKeyUserID{}, userID)
	ctx = context.WithValue(ctx, contextKeyUsername{}, claims.Username)
	ctx = context.WithValue(ctx, contextKeyToken{}, token)
	return ctx, nil
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"message":"` + message + `","code":"AUTHENTICATION"}}`))
}

// RequireAuth rejects requests without a valid token.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractToken(r)
			if !ok {
				logger.WarnContext(r.Context(), "unauthorized access - missing token",
					"request_id", GetRequestID(r.Context()),
				)
				writeUnauthorized(w, "missing or invalid Authorization header")
				return
			}
			ctx, err := authenticate(r.Context(), validator, token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth authenticates when a token is present but lets anonymous
// requests through. An invalid token is still rejected rather than silently
// treated as anonymous.
func OptionalAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx, err := authenticate(r.Context(), validator, token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
