package jwttoken

import (
	"conduit/internal/platform/middleware"
)

// ValidatorAdapter exposes Service through the middleware.JWTValidator
// interface.
type ValidatorAdapter struct {
	service *Service
}

func NewValidatorAdapter(service *Service) *ValidatorAdapter {
	return &ValidatorAdapter{service: service}
}

func (a *ValidatorAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}
