package events

import "github.com/google/uuid"

// Event names double as routing keys on the bus and as the event_type field
// in the persistent log.
const (
	NameUserRegistered     = "user.registered"
	NameUserLoggedIn       = "user.logged_in"
	NameUserLoginAttempted = "user.login_attempted"
	NameUserProfileUpdated = "user.profile_updated"
	NameUserPasswordChange = "user.password_changed"
	NameUserFollowed       = "user.followed"
	NameUserUnfollowed     = "user.unfollowed"
	NameArticleCreated     = "article.created"
	NameArticleUpdated     = "article.updated"
	NameArticleDeleted     = "article.deleted"
	NameArticleFavorited   = "article.favorited"
	NameArticleUnfavorited = "article.unfavorited"
	NameCommentAdded       = "comment.added"
	NameCommentDeleted     = "comment.deleted"
	NameTagCreated         = "tag.created"
	NameTagUsed            = "tag.used"
)

// UserRegistered fires after a new account is persisted.
type UserRegistered struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

func (UserRegistered) EventName() string { return NameUserRegistered }

// UserLoggedIn fires after a successful credential check.
type UserLoggedIn struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

func (UserLoggedIn) EventName() string { return NameUserLoggedIn }

// UserLoginAttempted fires on every login attempt, successful or not. The
// client fields come from the request's User-Agent header and feed the
// security handler.
type UserLoginAttempted struct {
	Email   string `json:"email"`
	Success bool   `json:"success"`
	IP      string `json:"ip,omitempty"`
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
}

func (UserLoginAttempted) EventName() string { return NameUserLoginAttempted }

// UserProfileUpdated fires after an account update commits.
type UserProfileUpdated struct {
	UserID        uuid.UUID `json:"user_id"`
	Username      string    `json:"username"`
	UpdatedFields []string  `json:"updated_fields"`
}

func (UserProfileUpdated) EventName() string { return NameUserProfileUpdated }

// UserPasswordChanged fires when an account update included a new password.
type UserPasswordChanged struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

func (UserPasswordChanged) EventName() string { return NameUserPasswordChange }

// UserFollowed fires after a follow relationship commits.
type UserFollowed struct {
	FollowerID uuid.UUID `json:"follower_id"`
	FolloweeID uuid.UUID `json:"followee_id"`
}

func (UserFollowed) EventName() string { return NameUserFollowed }

// UserUnfollowed fires after a follow relationship is removed.
type UserUnfollowed struct {
	FollowerID uuid.UUID `json:"follower_id"`
	FolloweeID uuid.UUID `json:"followee_id"`
}

func (UserUnfollowed) EventName() string { return NameUserUnfollowed }

// ArticleCreated fires after a new article commits.
type ArticleCreated struct {
	ArticleID uuid.UUID `json:"article_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Slug      string    `json:"slug"`
}

func (ArticleCreated) EventName() string { return NameArticleCreated }

// ArticleUpdated fires after an article update commits.
type ArticleUpdated struct {
	ArticleID     uuid.UUID `json:"article_id"`
	AuthorID      uuid.UUID `json:"author_id"`
	UpdatedFields []string  `json:"updated_fields"`
}

func (ArticleUpdated) EventName() string { return NameArticleUpdated }

// ArticleDeleted fires after an article deletion commits.
type ArticleDeleted struct {
	ArticleID uuid.UUID `json:"article_id"`
	AuthorID  uuid.UUID `json:"author_id"`
}

func (ArticleDeleted) EventName() string { return NameArticleDeleted }

// ArticleFavorited fires after a favorite commits.
type ArticleFavorited struct {
	ArticleID uuid.UUID `json:"article_id"`
	UserID    uuid.UUID `json:"user_id"`
}

func (ArticleFavorited) EventName() string { return NameArticleFavorited }

// ArticleUnfavorited fires after a favorite is removed.
type ArticleUnfavorited struct {
	ArticleID uuid.UUID `json:"article_id"`
	UserID    uuid.UUID `json:"user_id"`
}

func (ArticleUnfavorited) EventName() string { return NameArticleUnfavorited }

// CommentAdded fires after a comment commits.
type CommentAdded struct {
	CommentID uuid.UUID `json:"comment_id"`
	ArticleID uuid.UUID `json:"article_id"`
	AuthorID  uuid.UUID `json:"author_id"`
}

func (CommentAdded) EventName() string { return NameCommentAdded }

// CommentDeleted fires after a comment deletion commits.
type CommentDeleted struct {
	CommentID uuid.UUID `json:"comment_id"`
	ArticleID uuid.UUID `json:"article_id"`
	AuthorID  uuid.UUID `json:"author_id"`
}

func (CommentDeleted) EventName() string { return NameCommentDeleted }

// TagCreated fires the first time a tag appears on any article.
type TagCreated struct {
	Tag       string    `json:"tag"`
	ArticleID uuid.UUID `json:"article_id"`
	AuthorID  uuid.UUID `json:"author_id"`
}

func (TagCreated) EventName() string { return NameTagCreated }

// TagUsed fires each time an existing tag is attached to an article.
type TagUsed struct {
	Tag       string    `json:"tag"`
	ArticleID uuid.UUID `json:"article_id"`
	AuthorID  uuid.UUID `json:"author_id"`
}

func (TagUsed) EventName() string { return NameTagUsed }
