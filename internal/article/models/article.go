package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	usermodel "conduit/internal/user/models"
	"conduit/pkg/domainerrors"
	platformstrings "conduit/pkg/platform/strings"
)

// Article is the persisted aggregate. Tag and favorite state live in their
// own stores and are joined into View at the service layer.
type Article struct {
	ID          uuid.UUID
	Slug        string
	Title       string
	Description string
	Body        string
	AuthorID    uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// View is the article as presented to a viewer: tag list, favorite state and
// author profile resolved against the requesting user.
type View struct {
	Article
	TagList        []string
	Favorited      bool
	FavoritesCount int
	Author         usermodel.Profile
}

// ListFilter narrows article listings. Zero values mean "no filter".
type ListFilter struct {
	Tag         string
	Author      string
	FavoritedBy string
	Limit       int
	Offset      int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Normalize clamps pagination to sane bounds.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// NewArticleInput carries article creation input.
type NewArticleInput struct {
	Title       string
	Description string
	Body        string
	TagList     []string
}

// Validate enforces the article creation rules.
func (in NewArticleInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return domainerrors.WithCode(domainerrors.KindValidation, "MISSING_TITLE",
			"article title is required")
	}
	if strings.TrimSpace(in.Body) == "" {
		return domainerrors.WithCode(domainerrors.KindValidation, "MISSING_BODY",
			"article body is required")
	}
	for _, tag := range in.TagList {
		if strings.TrimSpace(tag) == "" {
			return domainerrors.WithCode(domainerrors.KindValidation, "EMPTY_TAG",
				"tag list must not contain empty tags")
		}
	}
	return nil
}

// UpdateArticleInput carries the optional fields of an article update.
type UpdateArticleInput struct {
	Title       *string
	Description *string
	Body        *string
}

// Validate checks only the fields that are present.
func (in UpdateArticleInput) Validate() error {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return domainerrors.WithCode(domainerrors.KindValidation, "MISSING_TITLE",
			"article title must not be blank")
	}
	if in.Body != nil && strings.TrimSpace(*in.Body) == "" {
		return domainerrors.WithCode(domainerrors.KindValidation, "MISSING_BODY",
			"article body must not be blank")
	}
	return nil
}

// Slugify derives a URL-safe slug from a title: lowercase, alphanumeric runs
// joined by single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// NormalizeTags trims, lowercases and de-duplicates a tag list, preserving
// first-seen order.
func NormalizeTags(tags []string) []string {
	return platformstrings.DedupeAndTrimLower(tags)
}
