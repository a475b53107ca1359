package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"conduit/pkg/domainerrors"
)

// Claims are the JWT claims carried by access tokens.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewService(signingKey string, issuer string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
	}
}

func (s *Service) Generate(userID uuid.UUID, username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   userID.String(),
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainerrors.WithCode(domainerrors.KindAuthentication, "TOKEN_EXPIRED", "token has expired")
		}
		return nil, domainerrors.WithCode(domainerrors.KindAuthentication, "TOKEN_INVALID", "invalid token")
	}
	if !parsed.Valid {
		return nil, domainerrors.WithCode(domainerrors.KindAuthentication, "TOKEN_INVALID", "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, domainerrors.WithCode(domainerrors.KindAuthentication, "TOKEN_INVALID", "invalid token claims")
	}
	return claims, nil
}

// ExtractUserID validates the token and parses its subject user ID.
func (s *Service) ExtractUserID(tokenString string) (uuid.UUID, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, domainerrors.WithCode(domainerrors.KindAuthentication, "TOKEN_INVALID", "invalid token subject")
	}
	return id, nil
}
