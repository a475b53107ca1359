package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	usermodel "conduit/internal/user/models"
	"conduit/pkg/domainerrors"
)

// Comment is a remark on an article.
type Comment struct {
	ID        uuid.UUID
	ArticleID uuid.UUID
	AuthorID  uuid.UUID
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// View is a comment with its author profile resolved against the requesting
// user.
type View struct {
	Comment
	Author usermodel.Profile
}

// ValidateBody enforces the comment business rules.
func ValidateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return domainerrors.WithCode(domainerrors.KindValidation, "MISSING_BODY",
			"comment body is required")
	}
	return nil
}
