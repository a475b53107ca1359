// Package storage defines the unit-of-work boundary for all persistence.
//
// A UnitOfWork wraps one database session and one transaction. It is created
// by Run (or RunBatch), exclusively owned by that call, and never outlives
// it. Stores obtained from a UnitOfWork are bound to its transaction.
package storage

import (
	"context"

	"github.com/google/uuid"

	articlemodel "conduit/internal/article/models"
	commentmodel "conduit/internal/comment/models"
	"conduit/internal/events"
	usermodel "conduit/internal/user/models"
)

// UserStore persists accounts.
//
// Error contract (all stores): return sentinel.ErrNotFound when the entity
// does not exist, sentinel.ErrConflict when a uniqueness constraint rejects a
// write, and wrapped infrastructure errors otherwise.
type UserStore interface {
	Create(ctx context.Context, u *usermodel.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*usermodel.User, error)
	FindByEmail(ctx context.Context, email string) (*usermodel.User, error)
	FindByUsername(ctx context.Context, username string) (*usermodel.User, error)
	Update(ctx context.Context, u *usermodel.User) error
}

// FollowerStore persists the follow relationship.
type FollowerStore interface {
	// Follow is idempotent: following an already-followed user is a no-op.
	Follow(ctx context.Context, followerID, followeeID uuid.UUID) error
	Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error
	IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)
	// FolloweeIDs returns every user the follower follows, for the feed.
	FolloweeIDs(ctx context.Context, followerID uuid.UUID) ([]uuid.UUID, error)
}

// ArticleStore persists articles.
type ArticleStore interface {
	Create(ctx context.Context, a *articlemodel.Article) error
	FindBySlug(ctx context.Context, slug string) (*articlemodel.Article, error)
	Update(ctx context.Context, a *articlemodel.Article) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns one page plus the unpaginated total count.
	List(ctx context.Context, filter articlemodel.ListFilter) ([]*articlemodel.Article, int, error)
	// Feed returns articles authored by any of authorIDs, newest first.
	Feed(ctx context.Context, authorIDs []uuid.UUID, limit, offset int) ([]*articlemodel.Article, int, error)
}

// FavoriteStore persists article favorites.
type FavoriteStore interface {
	Add(ctx context.Context, articleID, userID uuid.UUID) error
	Remove(ctx context.Context, articleID, userID uuid.UUID) error
	IsFavorited(ctx context.Context, articleID, userID uuid.UUID) (bool, error)
	Count(ctx context.Context, articleID uuid.UUID) (int, error)
}

// CommentStore persists comments.
type CommentStore interface {
	Create(ctx context.Context, c *commentmodel.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*commentmodel.Comment, error)
	ListByArticle(ctx context.Context, articleID uuid.UUID) ([]*commentmodel.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TagStore persists tags and their article associations.
type TagStore interface {
	// ReplaceForArticle sets the article's tag list and reports which tags
	// did not exist anywhere before this call.
	ReplaceForArticle(ctx context.Context, articleID uuid.UUID, tags []string) (created []string, err error)
	ForArticle(ctx context.Context, articleID uuid.UUID) ([]string, error)
	All(ctx context.Context) ([]string, error)
}

// UnitOfWork exposes the transaction-bound stores plus the post-commit event
// recorder. Events recorded during an operation are published only after the
// transaction commits; rolled-back work never produces observable events.
type UnitOfWork interface {
	Users() UserStore
	Followers() FollowerStore
	Articles() ArticleStore
	Favorites() FavoriteStore
	Comments() CommentStore
	Tags() TagStore

	Record(evt events.Event)
}

// Tx is a live unit of work as seen by the Run wrapper. Rollback after a
// successful Commit must be a no-op so Run can unconditionally defer it; the
// underlying session is released by whichever of Commit/Rollback runs first.
type Tx interface {
	UnitOfWork
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	// Events returns everything recorded via Record, in order.
	Events() []events.Event
}

// Manager opens units of work. Two concurrent Begin calls yield two
// independent sessions; implementations hold no per-call mutable state.
type Manager interface {
	Begin(ctx context.Context) (Tx, error)
}
