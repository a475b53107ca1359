// Package memory provides an in-memory storage.Manager for tests and dev
// mode.
//
// Begin snapshots the whole state; stores mutate the snapshot; Commit swaps
// the snapshot back in under the manager lock. Rollback simply discards the
// snapshot, which gives real all-or-nothing semantics without a database.
// Commits serialize; concurrent units of work are isolated by snapshotting,
// with last-commit-wins resolution. Production traffic uses the postgres
// manager.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	articlemodel "conduit/internal/article/models"
	commentmodel "conduit/internal/comment/models"
	"conduit/internal/events"
	"conduit/internal/storage"
	usermodel "conduit/internal/user/models"
)

type followKey struct {
	follower uuid.UUID
	followee uuid.UUID
}

type favoriteKey struct {
	article uuid.UUID
	user    uuid.UUID
}

type state struct {
	users       map[uuid.UUID]usermodel.User
	follows     map[followKey]bool
	articles    map[uuid.UUID]articlemodel.Article
	favorites   map[favoriteKey]bool
	comments    map[uuid.UUID]commentmodel.Comment
	articleTags map[uuid.UUID][]string
	tags        map[string]bool
}

func newState() *state {
	return &state{
		users:       make(map[uuid.UUID]usermodel.User),
		follows:     make(map[followKey]bool),
		articles:    make(map[uuid.UUID]articlemodel.Article),
		favorites:   make(map[favoriteKey]bool),
		comments:    make(map[uuid.UUID]commentmodel.Comment),
		articleTags: make(map[uuid.UUID][]string),
		tags:        make(map[string]bool),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.follows {
		c.follows[k] = v
	}
	for k, v := range s.articles {
		c.articles[k] = v
	}
	for k, v := range s.favorites {
		c.favorites[k] = v
	}
	for k, v := range s.comments {
		c.comments[k] = v
	}
	for k, v := range s.articleTags {
		tags := make([]string, len(v))
		copy(tags, v)
		c.articleTags[k] = tags
	}
	for k, v := range s.tags {
		c.tags[k] = v
	}
	return c
}

// Manager is the in-memory storage.Manager.
type Manager struct {
	mu    sync.Mutex
	state *state
}

// NewManager constructs an empty in-memory manager.
func NewManager() *Manager {
	return &Manager{state: newState()}
}

// Begin snapshots current state into a new unit of work.
func (m *Manager) Begin(_ context.Context) (storage.Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &tx{mgr: m, state: m.state.clone()}, nil
}

type tx struct {
	mgr      *Manager
	state    *state
	recorded []events.Event
	done     bool
}

func (t *tx) Users() storage.UserStore         { return &userStore{s: t.state} }
func (t *tx) Followers() storage.FollowerStore { return &followerStore{s: t.state} }
func (t *tx) Articles() storage.ArticleStore   { return &articleStore{s: t.state} }
func (t *tx) Favorites() storage.FavoriteStore { return &favoriteStore{s: t.state} }
func (t *tx) Comments() storage.CommentStore   { return &commentStore{s: t.state} }
func (t *tx) Tags() storage.TagStore           { return &tagStore{s: t.state} }

func (t *tx) Record(evt events.Event) {
	t.recorded = append(t.recorded, evt)
}

func (t *tx) Events() []events.Event { return t.recorded }

func (t *tx) Commit(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.mgr.mu.Lock()
	t.mgr.state = t.state
	t.mgr.mu.Unlock()
	return nil
}

// Rollback discards the snapshot. A no-op after Commit so the Run wrapper
// can defer it unconditionally.
func (t *tx) Rollback(_ context.Context) error {
	t.done = true
	return nil
}
