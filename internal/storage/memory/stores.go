package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"

	articlemodel "conduit/internal/article/models"
	commentmodel "conduit/internal/comment/models"
	usermodel "conduit/internal/user/models"
	"conduit/pkg/platform/sentinel"
)

type userStore struct {
	s *state
}

func (st *userStore) Create(_ context.Context, u *usermodel.User) error {
	for _, existing := range st.s.users {
		if strings.EqualFold(existing.Email, u.Email) || existing.Username == u.Username {
			return fmt.Errorf("user exists: %w", sentinel.ErrConflict)
		}
	}
	st.s.users[u.ID] = *u
	return nil
}

func (st *userStore) FindByID(_ context.Context, id uuid.UUID) (*usermodel.User, error) {
	u, ok := st.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	return &u, nil
}

func (st *userStore) FindByEmail(_ context.Context, email string) (*usermodel.User, error) {
	for _, u := range st.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user by email: %w", sentinel.ErrNotFound)
}

func (st *userStore) FindByUsername(_ context.Context, username string) (*usermodel.User, error) {
	for _, u := range st.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, sentinel.ErrNotFound)
}

func (st *userStore) Update(_ context.Context, u *usermodel.User) error {
	if _, ok := st.s.users[u.ID]; !ok {
		return fmt.Errorf("user %s: %w", u.ID, sentinel.ErrNotFound)
	}
	for id, existing := range st.s.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(existing.Email, u.Email) || existing.Username == u.Username {
			return fmt.Errorf("user exists: %w", sentinel.ErrConflict)
		}
	}
	st.s.users[u.ID] = *u
	return nil
}

type followerStore struct {
	s *state
}

func (st *followerStore) Follow(_ context.Context, followerID, followeeID uuid.UUID) error {
	st.s.follows[followKey{followerID, followeeID}] = true
	return nil
}

func (st *followerStore) Unfollow(_ context.Context, followerID, followeeID uuid.UUID) error {
	delete(st.s.follows, followKey{followerID, followeeID})
	return nil
}

func (st *followerStore) IsFollowing(_ context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	return st.s.follows[followKey{followerID, followeeID}], nil
}

func (st *followerStore) FolloweeIDs(_ context.Context, followerID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for k := range st.s.follows {
		if k.follower == followerID {
			out = append(out, k.followee)
		}
	}
	return out, nil
}

type articleStore struct {
	s *state
}

func (st *articleStore) Create(_ context.Context, a *articlemodel.Article) error {
	for _, existing := range st.s.articles {
		if existing.Slug == a.Slug {
			return fmt.Errorf("slug %q: %w", a.Slug, sentinel.ErrConflict)
		}
	}
	st.s.articles[a.ID] = *a
	return nil
}

func (st *articleStore) FindBySlug(_ context.Context, slug string) (*articlemodel.Article, error) {
	for _, a := range st.s.articles {
		if a.Slug == slug {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("article %q: %w", slug, sentinel.ErrNotFound)
}

func (st *articleStore) Update(_ context.Context, a *articlemodel.Article) error {
	if _, ok := st.s.articles[a.ID]; !ok {
		return fmt.Errorf("article %s: %w", a.ID, sentinel.ErrNotFound)
	}
	for id, existing := range st.s.articles {
		if id != a.ID && existing.Slug == a.Slug {
			return fmt.Errorf("slug %q: %w", a.Slug, sentinel.ErrConflict)
		}
	}
	st.s.articles[a.ID] = *a
	return nil
}

func (st *articleStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := st.s.articles[id]; !ok {
		return fmt.Errorf("article %s: %w", id, sentinel.ErrNotFound)
	}
	delete(st.s.articles, id)
	delete(st.s.articleTags, id)
	for k := range st.s.favorites {
		if k.article == id {
			delete(st.s.favorites, k)
		}
	}
	for cid, c := range st.s.comments {
		if c.ArticleID == id {
			delete(st.s.comments, cid)
		}
	}
	return nil
}

func (st *articleStore) List(_ context.Context, filter articlemodel.ListFilter) ([]*articlemodel.Article, int, error) {
	var matched []articlemodel.Article
	for id, a := range st.s.articles {
		if filter.Tag != "" && !slices.Contains(st.s.articleTags[id], filter.Tag) {
			continue
		}
		if filter.Author != "" {
			author, ok := st.s.users[a.AuthorID]
			if !ok || author.Username != filter.Author {
				continue
			}
		}
		if filter.FavoritedBy != "" {
			var favoritedBy *usermodel.User
			for _, u := range st.s.users {
				if u.Username == filter.FavoritedBy {
					u := u
					favoritedBy = &u
					break
				}
			}
			if favoritedBy == nil || !st.s.favorites[favoriteKey{id, favoritedBy.ID}] {
				continue
			}
		}
		matched = append(matched, a)
	}
	return page(matched, filter.Limit, filter.Offset)
}

func (st *articleStore) Feed(_ context.Context, authorIDs []uuid.UUID, limit, offset int) ([]*articlemodel.Article, int, error) {
	var matched []articlemodel.Article
	for _, a := range st.s.articles {
		if slices.Contains(authorIDs, a.AuthorID) {
			matched = append(matched, a)
		}
	}
	return page(matched, limit, offset)
}

// page sorts newest-first and applies limit/offset, returning the total
// pre-pagination count.
func page(matched []articlemodel.Article, limit, offset int) ([]*articlemodel.Article, int, error) {
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	out := make([]*articlemodel.Article, 0, end-offset)
	for i := offset; i < end; i++ {
		a := matched[i]
		out = append(out, &a)
	}
	return out, total, nil
}

type favoriteStore struct {
	s *state
}

func (st *favoriteStore) Add(_ context.Context, articleID, userID uuid.UUID) error {
	st.s.favorites[favoriteKey{articleID, userID}] = true
	return nil
}

func (st *favoriteStore) Remove(_ context.Context, articleID, userID uuid.UUID) error {
	delete(st.s.favorites, favoriteKey{articleID, userID})
	return nil
}

func (st *favoriteStore) IsFavorited(_ context.Context, articleID, userID uuid.UUID) (bool, error) {
	return st.s.favorites[favoriteKey{articleID, userID}], nil
}

func (st *favoriteStore) Count(_ context.Context, articleID uuid.UUID) (int, error) {
	count := 0
	for k := range st.s.favorites {
		if k.article == articleID {
			count++
		}
	}
	return count, nil
}

type commentStore struct {
	s *state
}

func (st *commentStore) Create(_ context.Context, c *commentmodel.Comment) error {
	st.s.comments[c.ID] = *c
	return nil
}

func (st *commentStore) FindByID(_ context.Context, id uuid.UUID) (*commentmodel.Comment, error) {
	c, ok := st.s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, sentinel.ErrNotFound)
	}
	return &c, nil
}

func (st *commentStore) ListByArticle(_ context.Context, articleID uuid.UUID) ([]*commentmodel.Comment, error) {
	var out []*commentmodel.Comment
	for _, c := range st.s.comments {
		if c.ArticleID == articleID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (st *commentStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := st.s.comments[id]; !ok {
		return fmt.Errorf("comment %s: %w", id, sentinel.ErrNotFound)
	}
	delete(st.s.comments, id)
	return nil
}

type tagStore struct {
	s *state
}

func (st *tagStore) ReplaceForArticle(_ context.Context, articleID uuid.UUID, tags []string) ([]string, error) {
	var created []string
	for _, tag := range tags {
		if !st.s.tags[tag] {
			st.s.tags[tag] = true
			created = append(created, tag)
		}
	}
	st.s.articleTags[articleID] = slices.Clone(tags)
	return created, nil
}

func (st *tagStore) ForArticle(_ context.Context, articleID uuid.UUID) ([]string, error) {
	return slices.Clone(st.s.articleTags[articleID]), nil
}

func (st *tagStore) All(_ context.Context) ([]string, error) {
	out := make([]string, 0, len(st.s.tags))
	for tag := range st.s.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out, nil
}
