package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	articlemodel "conduit/internal/article/models"
	commentmodel "conduit/internal/comment/models"
	usermodel "conduit/internal/user/models"
)

type userStore struct {
	tx pgx.Tx
}

const userColumns = "id, username, email, password_hash, bio, image, created_at, updated_at"

func scanUser(row pgx.Row) (*usermodel.User, error) {
	var u usermodel.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Bio, &u.Image, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, u *usermodel.User) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, bio, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Bio, u.Image, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", mapError(err))
	}
	return nil
}

func (s *userStore) FindByID(ctx context.Context, id uuid.UUID) (*usermodel.User, error) {
	u, err := scanUser(s.tx.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return u, nil
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*usermodel.User, error) {
	u, err := scanUser(s.tx.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE LOWER(email) = LOWER($1)", email))
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (s *userStore) FindByUsername(ctx context.Context, username string) (*usermodel.User, error) {
	u, err := scanUser(s.tx.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username))
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}
	return u, nil
}

func (s *userStore) Update(ctx context.Context, u *usermodel.User) error {
	tag, err := s.tx.Exec(ctx, `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, bio = $5, image = $6, updated_at = $7
		WHERE id = $1`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Bio, u.Image, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update user %s: %w", u.ID, mapError(pgx.ErrNoRows))
	}
	return nil
}

type followerStore struct {
	tx pgx.Tx
}

func (s *followerStore) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		followerID, followeeID)
	if err != nil {
		return fmt.Errorf("follow: %w", mapError(err))
	}
	return nil
}

func (s *followerStore) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	_, err := s.tx.Exec(ctx,
		"DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2",
		followerID, followeeID)
	if err != nil {
		return fmt.Errorf("unfollow: %w", mapError(err))
	}
	return nil
}

func (s *followerStore) IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	var following bool
	err := s.tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)",
		followerID, followeeID).Scan(&following)
	if err != nil {
		return false, fmt.Errorf("check following: %w", mapError(err))
	}
	return following, nil
}

func (s *followerStore) FolloweeIDs(ctx context.Context, followerID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.tx.Query(ctx,
		"SELECT followee_id FROM follows WHERE follower_id = $1", followerID)
	if err != nil {
		return nil, fmt.Errorf("list followees: %w", mapError(err))
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("list followees: %w", mapError(err))
	}
	return ids, nil
}

type articleStore struct {
	tx pgx.Tx
}

const articleColumns = "a.id, a.slug, a.title, a.description, a.body, a.author_id, a.created_at, a.updated_at"

func scanArticle(row pgx.CollectableRow) (*articlemodel.Article, error) {
	var a articlemodel.Article
	err := row.Scan(&a.ID, &a.Slug, &a.Title, &a.Description, &a.Body, &a.AuthorID, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (s *articleStore) Create(ctx context.Context, a *articlemodel.Article) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO articles (id, slug, title, description, body, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Slug, a.Title, a.Description, a.Body, a.AuthorID, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create article: %w", mapError(err))
	}
	return nil
}

func (s *articleStore) FindBySlug(ctx context.Context, slug string) (*articlemodel.Article, error) {
	var a articlemodel.Article
	err := s.tx.QueryRow(ctx,
		"SELECT "+articleColumns+" FROM articles a WHERE a.slug = $1", slug).
		Scan(&a.ID, &a.Slug, &a.Title, &a.Description, &a.Body, &a.AuthorID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("find article %q: %w", slug, mapError(err))
	}
	return &a, nil
}

func (s *articleStore) Update(ctx context.Context, a *articlemodel.Article) error {
	tag, err := s.tx.Exec(ctx, `
		UPDATE articles
		SET slug = $2, title = $3, description = $4, body = $5, updated_at = $6
		WHERE id = $1`,
		a.ID, a.Slug, a.Title, a.Description, a.Body, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update article: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update article %s: %w", a.ID, mapError(pgx.ErrNoRows))
	}
	return nil
}

func (s *articleStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.tx.Exec(ctx, "DELETE FROM articles WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete article: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete article %s: %w", id, mapError(pgx.ErrNoRows))
	}
	return nil
}

func (s *articleStore) List(ctx context.Context, filter articlemodel.ListFilter) ([]*articlemodel.Article, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Tag != "" {
		where = append(where,
			"EXISTS (SELECT 1 FROM article_tags at WHERE at.article_id = a.id AND at.tag = "+arg(filter.Tag)+")")
	}
	if filter.Author != "" {
		where = append(where,
			"a.author_id = (SELECT id FROM users WHERE username = "+arg(filter.Author)+")")
	}
	if filter.FavoritedBy != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM favorites f
			JOIN users fu ON fu.id = f.user_id
			WHERE f.article_id = a.id AND fu.username = `+arg(filter.FavoritedBy)+")")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.tx.QueryRow(ctx, "SELECT COUNT(*) FROM articles a"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", mapError(err))
	}

	query := "SELECT " + articleColumns + " FROM articles a" + clause +
		" ORDER BY a.created_at DESC LIMIT " + arg(filter.Limit) + " OFFSET " + arg(filter.Offset)
	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", mapError(err))
	}
	articles, err := pgx.CollectRows(rows, scanArticle)
	if err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", mapError(err))
	}
	return articles, total, nil
}

func (s *articleStore) Feed(ctx context.Context, authorIDs []uuid.UUID, limit, offset int) ([]*articlemodel.Article, int, error) {
	if len(authorIDs) == 0 {
		return nil, 0, nil
	}

	var total int
	if err := s.tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM articles a WHERE a.author_id = ANY($1)", authorIDs).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feed: %w", mapError(err))
	}

	rows, err := s.tx.Query(ctx,
		"SELECT "+articleColumns+` FROM articles a
		WHERE a.author_id = ANY($1)
		ORDER BY a.created_at DESC LIMIT $2 OFFSET $3`,
		authorIDs, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list feed: %w", mapError(err))
	}
	articles, err := pgx.CollectRows(rows, scanArticle)
	if err != nil {
		return nil, 0, fmt.Errorf("list feed: %w", mapError(err))
	}
	return articles, total, nil
}

type favoriteStore struct {
	tx pgx.Tx
}

func (s *favoriteStore) Add(ctx context.Context, articleID, userID uuid.UUID) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO favorites (article_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		articleID, userID)
	if err != nil {
		return fmt.Errorf("favorite: %w", mapError(err))
	}
	return nil
}

func (s *favoriteStore) Remove(ctx context.Context, articleID, userID uuid.UUID) error {
	_, err := s.tx.Exec(ctx,
		"DELETE FROM favorites WHERE article_id = $1 AND user_id = $2",
		articleID, userID)
	if err != nil {
		return fmt.Errorf("unfavorite: %w", mapError(err))
	}
	return nil
}

func (s *favoriteStore) IsFavorited(ctx context.Context, articleID, userID uuid.UUID) (bool, error) {
	var favorited bool
	err := s.tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM favorites WHERE article_id = $1 AND user_id = $2)",
		articleID, userID).Scan(&favorited)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", mapError(err))
	}
	return favorited, nil
}

func (s *favoriteStore) Count(ctx context.Context, articleID uuid.UUID) (int, error) {
	var count int
	err := s.tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM favorites WHERE article_id = $1", articleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count favorites: %w", mapError(err))
	}
	return count, nil
}

type commentStore struct {
	tx pgx.Tx
}

func (s *commentStore) Create(ctx context.Context, c *commentmodel.Comment) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO comments (id, article_id, author_id, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.ArticleID, c.AuthorID, c.Body, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create comment: %w", mapError(err))
	}
	return nil
}

func (s *commentStore) FindByID(ctx context.Context, id uuid.UUID) (*commentmodel.Comment, error) {
	var c commentmodel.Comment
	err := s.tx.QueryRow(ctx, `
		SELECT id, article_id, author_id, body, created_at, updated_at
		FROM comments WHERE id = $1`, id).
		Scan(&c.ID, &c.ArticleID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("find comment %s: %w", id, mapError(err))
	}
	return &c, nil
}

func (s *commentStore) ListByArticle(ctx context.Context, articleID uuid.UUID) ([]*commentmodel.Comment, error) {
	rows, err := s.tx.Query(ctx, `
		SELECT id, article_id, author_id, body, created_at, updated_at
		FROM comments WHERE article_id = $1
		ORDER BY created_at`, articleID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", mapError(err))
	}
	comments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*commentmodel.Comment, error) {
		var c commentmodel.Comment
		err := row.Scan(&c.ID, &c.ArticleID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt)
		return &c, err
	})
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", mapError(err))
	}
	return comments, nil
}

func (s *commentStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.tx.Exec(ctx, "DELETE FROM comments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete comment %s: %w", id, mapError(pgx.ErrNoRows))
	}
	return nil
}

type tagStore struct {
	tx pgx.Tx
}

func (s *tagStore) ReplaceForArticle(ctx context.Context, articleID uuid.UUID, tags []string) ([]string, error) {
	if _, err := s.tx.Exec(ctx,
		"DELETE FROM article_tags WHERE article_id = $1", articleID); err != nil {
		return nil, fmt.Errorf("clear article tags: %w", mapError(err))
	}

	var created []string
	for i, name := range tags {
		tag, err := s.tx.Exec(ctx,
			"INSERT INTO tags (name) VALUES ($1) ON CONFLICT DO NOTHING", name)
		if err != nil {
			return nil, fmt.Errorf("upsert tag: %w", mapError(err))
		}
		if tag.RowsAffected() > 0 {
			created = append(created, name)
		}
		if _, err := s.tx.Exec(ctx,
			"INSERT INTO article_tags (article_id, tag, position) VALUES ($1, $2, $3)",
			articleID, name, i); err != nil {
			return nil, fmt.Errorf("tag article: %w", mapError(err))
		}
	}
	return created, nil
}

func (s *tagStore) ForArticle(ctx context.Context, articleID uuid.UUID) ([]string, error) {
	rows, err := s.tx.Query(ctx,
		"SELECT tag FROM article_tags WHERE article_id = $1 ORDER BY position", articleID)
	if err != nil {
		return nil, fmt.Errorf("article tags: %w", mapError(err))
	}
	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("article tags: %w", mapError(err))
	}
	return tags, nil
}

func (s *tagStore) All(ctx context.Context) ([]string, error) {
	rows, err := s.tx.Query(ctx, "SELECT name FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", mapError(err))
	}
	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", mapError(err))
	}
	return tags, nil
}
