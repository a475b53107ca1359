// Package service implements commenting on articles.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	articlemodel "conduit/internal/article/models"
	"conduit/internal/comment/models"
	"conduit/internal/events"
	"conduit/internal/storage"
	"conduit/pkg/domainerrors"
	"conduit/pkg/platform/sentinel"
)

// Service implements comment operations.
type Service struct {
	mgr    storage.Manager
	bus    events.Publisher
	logger *slog.Logger
}

func New(mgr storage.Manager, bus events.Publisher, logger *slog.Logger) *Service {
	return &Service{mgr: mgr, bus: bus, logger: logger}
}

// Add attaches a comment to the article behind slug.
func (s *Service) Add(ctx context.Context, authorID uuid.UUID, slug, body string) (*models.View, error) {
	if err := models.ValidateBody(body); err != nil {
		return nil, err
	}

	return storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (*models.View, error) {
			article, err := findArticle(ctx, uow, slug)
			if err != nil {
				return nil, err
			}

			now := time.Now().UTC()
			comment := &models.Comment{
				ID:        uuid.New(),
				ArticleID: article.ID,
				AuthorID:  authorID,
				Body:      body,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := uow.Comments().Create(ctx, comment); err != nil {
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "create comment")
			}
			uow.Record(events.CommentAdded{
				CommentID: comment.ID,
				ArticleID: article.ID,
				AuthorID:  authorID,
			})

			return s.view(ctx, uow, comment, authorID)
		})
}

// List returns the article's comments oldest first, with author profiles
// resolved against viewerID (uuid.Nil for anonymous).
func (s *Service) List(ctx context.Context, slug string, viewerID uuid.UUID) ([]*models.View, error) {
	return storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) ([]*models.View, error) {
			article, err := findArticle(ctx, uow, slug)
			if err != nil {
				return nil, err
			}
			comments, err := uow.Comments().ListByArticle(ctx, article.ID)
			if err != nil {
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "list comments")
			}
			views := make([]*models.View, 0, len(comments))
			for _, comment := range comments {
				v, err := s.view(ctx, uow, comment, viewerID)
				if err != nil {
					return nil, err
				}
				views = append(views, v)
			}
			return views, nil
		})
}

// Delete removes a comment. Only the comment's author may delete it. The slug
// must match the comment's article so a comment cannot be deleted through an
// unrelated URL.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, slug string, commentID uuid.UUID) error {
	_, err := storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (struct{}, error) {
			article, err := findArticle(ctx, uow, slug)
			if err != nil {
				return struct{}{}, err
			}
			comment, err := uow.Comments().FindByID(ctx, commentID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return struct{}{}, domainerrors.New(domainerrors.KindNotFound, "comment not found")
				}
				return struct{}{}, domainerrors.Wrap(err, domainerrors.KindInternal, "find comment")
			}
			if comment.ArticleID != article.ID {
				return struct{}{}, domainerrors.New(domainerrors.KindNotFound, "comment not found")
			}
			if comment.AuthorID != userID {
				return struct{}{}, domainerrors.WithCode(domainerrors.KindPermissionDenied, "NOT_COMMENT_AUTHOR",
					"only the author may delete this comment")
			}
			if err := uow.Comments().Delete(ctx, commentID); err != nil {
				return struct{}{}, domainerrors.Wrap(err, domainerrors.KindInternal, "delete comment")
			}
			uow.Record(events.CommentDeleted{
				CommentID: comment.ID,
				ArticleID: comment.ArticleID,
				AuthorID:  comment.AuthorID,
			})
			return struct{}{}, nil
		})
	return err
}

func (s *Service) view(ctx context.Context, uow storage.UnitOfWork, comment *models.Comment, viewerID uuid.UUID) (*models.View, error) {
	author, err := uow.Users().FindByID(ctx, comment.AuthorID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "find comment author")
	}
	following := false
	if viewerID != uuid.Nil && viewerID != author.ID {
		following, err = uow.Followers().IsFollowing(ctx, viewerID, author.ID)
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "check following")
		}
	}
	return &models.View{
		Comment: *comment,
		Author:  author.Profile(following),
	}, nil
}

func findArticle(ctx context.Context, uow storage.UnitOfWork, slug string) (*articlemodel.Article, error) {
	article, err := uow.Articles().FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.Newf(domainerrors.KindNotFound, "article %q not found", slug)
		}
		return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "find article")
	}
	return article, nil
}
