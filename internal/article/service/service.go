// Package service implements article operations: authoring, listing, the
// personal feed and favorites.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"conduit/internal/article/models"
	"conduit/internal/events"
	"conduit/internal/storage"
	"conduit/pkg/domainerrors"
	"conduit/pkg/platform/sentinel"
)

// Service implements article operations on top of the unit-of-work layer.
type Service struct {
	mgr    storage.Manager
	bus    events.Publisher
	logger *slog.Logger
}

func New(mgr storage.Manager, bus events.Publisher, logger *slog.Logger) *Service {
	return &Service{mgr: mgr, bus: bus, logger: logger}
}

// Create persists a new article with its tags. The slug is derived from the
// title; a colliding slug is a conflict.
func (s *Service) Create(ctx context.Context, authorID uuid.UUID, input models.NewArticleInput) (*models.View, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	tags := models.NormalizeTags(input.TagList)

	now := time.Now().UTC()
	article := &models.Article{
		ID:          uuid.New(),
		Slug:        models.Slugify(input.Title),
		Title:       input.Title,
		Description: input.Description,
		Body:        input.Body,
		AuthorID:    authorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (*models.View, error) {
			if err := uow.Articles().Create(ctx, article); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return nil, domainerrors.WithCode(domainerrors.KindConflict, "SLUG_TAKEN",
						"an article with this title already exists")
				}
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "create article")
			}

			created, err := uow.Tags().ReplaceForArticle(ctx, article.ID, tags)
			if err != nil {
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "set tags")
			}
			newTags := make(map[string]bool, len(created))
			for _, tag := range created {
				newTags[tag] = true
			}
			for _, tag := range tags {
				if newTags[tag] {
					uow.Record(events.TagCreated{Tag: tag, ArticleID: article.ID, AuthorID: authorID})
				} else {
					uow.Record(events.TagUsed{Tag: tag, ArticleID: article.ID, AuthorID: authorID})
				}
			}
			uow.Record(events.ArticleCreated{
				ArticleID: article.ID,
				AuthorID:  authorID,
				Slug:      article.Slug,
			})

			return s.view(ctx, uow, article, authorID)
		})
}

// Get returns one article as seen by viewerID (uuid.Nil for anonymous).
func (s *Service) Get(ctx context.Context, slug string, viewerID uuid.UUID) (*models.View, error) {
	return storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (*models.View, error) {
			article, err := findBySlug(ctx, uow, slug)
			if err != nil {
				return nil, err
			}
			return s.view(ctx, uow, article, viewerID)
		})
}

// List returns a page of articles matching the filter plus the unpaginated
// total.
func (s *Service) List(ctx context.Context, filter models.ListFilter, viewerID uuid.UUID) ([]*models.View, int, error) {
	filter.Normalize()
	type page struct {
		views []*models.View
		total int
	}
	res, err := storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (page, error) {
			articles, total, err := uow.Articles().List(ctx, filter)
			if err != nil {
				return page{}, domainerrors.Wrap(err, domainerrors.KindInternal, "list articles")
			}
			views, err := s.views(ctx, uow, articles, viewerID)
			if err != nil {
				return page{}, err
			}
			return page{views: views, total: total}, nil
		})
	if err != nil {
		return nil, 0, err
	}
	return res.views, res.total, nil
}

// Feed returns articles authored by users the viewer follows, newest first.
func (s *Service) Feed(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]*models.View, int, error) {
	filter := models.ListFilter{Limit: limit, Offset: offset}
	filter.Normalize()
	type page struct {
		views []*models.View
		total int
	}
	res, err := storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (page, error) {
			followed, err := uow.Followers().FolloweeIDs(ctx, viewerID)
			if err != nil {
				return page{}, domainerrors.Wrap(err, domainerrors.KindInternal, "list followees")
			}
			articles, total, err := uow.Articles().Feed(ctx, followed, filter.Limit, filter.Offset)
			if err != nil {
				return page{}, domainerrors.Wrap(err, domainerrors.KindInternal, "list feed")
			}
			views, err := s.views(ctx, uow, articles, viewerID)
			if err != nil {
				return page{}, err
			}
			return page{views: views, total: total}, nil
		})
	if err != nil {
		return nil, 0, err
	}
	return res.views, res.total, nil
}

// Update applies the provided fields. Only the author may update an article;
// a title change regenerates the slug.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, slug string, input models.UpdateArticleInput) (*models.View, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	return storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (*models.View, error) {
			article, err := findBySlug(ctx, uow, slug)
			if err != nil {
				return nil, err
			}
			if article.AuthorID != userID {
				return nil, domainerrors.WithCode(domainerrors.KindPermissionDenied, "NOT_ARTICLE_AUTHOR",
					"only the author may modify this article")
			}

			var updated []string
			if input.Title != nil && *input.Title != article.Title {
				article.Title = *input.Title
				article.Slug = models.Slugify(*input.Title)
				updated = append(updated, "title")
			}
			if input.Description != nil && *input.Description != article.Description {
				article.Description = *input.Description
				updated = append(updated, "description")
			}
			if input.Body != nil && *input.Body != article.Body {
				article.Body = *input.Body
				updated = append(updated, "body")
			}
			if len(updated) > 0 {
				article.UpdatedAt = time.Now().UTC()
				if err := uow.Articles().Update(ctx, article); err != nil {
					if errors.Is(err, sentinel.ErrConflict) {
						return nil, domainerrors.WithCode(domainerrors.KindConflict, "SLUG_TAKEN",
							"an article with this title already exists")
					}
					return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "update article")
				}
				uow.Record(events.ArticleUpdated{
					ArticleID:     article.ID,
					AuthorID:      article.AuthorID,
					UpdatedFields: updated,
				})
			}

			return s.view(ctx, uow, article, userID)
		})
}

// Delete removes an article. Only the author may delete it; tags, favorites
// and comments go with it.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, slug string) error {
	_, err := storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (struct{}, error) {
			article, err := findBySlug(ctx, uow, slug)
			if err != nil {
				return struct{}{}, err
			}
			if article.AuthorID != userID {
				return struct{}{}, domainerrors.WithCode(domainerrors.KindPermissionDenied, "NOT_ARTICLE_AUTHOR",
					"only the author may delete this article")
			}
			if err := uow.Articles().Delete(ctx, article.ID); err != nil {
				return struct{}{}, domainerrors.Wrap(err, domainerrors.KindInternal, "delete article")
			}
			uow.Record(events.ArticleDeleted{
				ArticleID: article.ID,
				AuthorID:  article.AuthorID,
			})
			return struct{}{}, nil
		})
	return err
}

// Favorite marks the article as favorited by userID. Idempotent.
func (s *Service) Favorite(ctx context.Context, userID uuid.UUID, slug string) (*models.View, error) {
	return storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (*models.View, error) {
			article, err := findBySlug(ctx, uow, slug)
			if err != nil {
				return nil, err
			}
			already, err := uow.Favorites().IsFavorited(ctx, article.ID, userID)
			if err != nil {
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "check favorite")
			}
			if !already {
				if err := uow.Favorites().Add(ctx, article.ID, userID); err != nil {
					return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "favorite")
				}
				uow.Record(events.ArticleFavorited{ArticleID: article.ID, UserID: userID})
			}
			return s.view(ctx, uow, article, userID)
		})
}

// Unfavorite removes the favorite. Idempotent.
func (s *Service) Unfavorite(ctx context.Context, userID uuid.UUID, slug string) (*models.View, error) {
	return storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (*models.View, error) {
			article, err := findBySlug(ctx, uow, slug)
			if err != nil {
				return nil, err
			}
			favorited, err := uow.Favorites().IsFavorited(ctx, article.ID, userID)
			if err != nil {
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "check favorite")
			}
			if favorited {
				if err := uow.Favorites().Remove(ctx, article.ID, userID); err != nil {
					return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "unfavorite")
				}
				uow.Record(events.ArticleUnfavorited{ArticleID: article.ID, UserID: userID})
			}
			return s.view(ctx, uow, article, userID)
		})
}

// view joins tag, favorite and author state onto the article for one viewer.
func (s *Service) view(ctx context.Context, uow storage.UnitOfWork, article *models.Article, viewerID uuid.UUID) (*models.View, error) {
	tags, err := uow.Tags().ForArticle(ctx, article.ID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "article tags")
	}
	count, err := uow.Favorites().Count(ctx, article.ID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "favorite count")
	}
	favorited := false
	if viewerID != uuid.Nil {
		favorited, err = uow.Favorites().IsFavorited(ctx, article.ID, viewerID)
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "check favorite")
		}
	}

	author, err := uow.Users().FindByID(ctx, article.AuthorID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "find author")
	}
	following := false
	if viewerID != uuid.Nil && viewerID != author.ID {
		following, err = uow.Followers().IsFollowing(ctx, viewerID, author.ID)
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "check following")
		}
	}

	if tags == nil {
		tags = []string{}
	}
	return &models.View{
		Article:        *article,
		TagList:        tags,
		Favorited:      favorited,
		FavoritesCount: count,
		Author:         author.Profile(following),
	}, nil
}

func (s *Service) views(ctx context.Context, uow storage.UnitOfWork, articles []*models.Article, viewerID uuid.UUID) ([]*models.View, error) {
	views := make([]*models.View, 0, len(articles))
	for _, article := range articles {
		v, err := s.view(ctx, uow, article, viewerID)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func findBySlug(ctx context.Context, uow storage.UnitOfWork, slug string) (*models.Article, error) {
	article, err := uow.Articles().FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.Newf(domainerrors.KindNotFound, "article %q not found", slug)
		}
		return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "find article")
	}
	return article, nil
}
