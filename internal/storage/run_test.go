package storage_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/events"
	"conduit/internal/storage"
	"conduit/internal/storage/memory"
	usermodel "conduit/internal/user/models"
	"conduit/pkg/domainerrors"
)

func newUser(username string) *usermodel.User {
	now := time.Now()
	return &usermodel.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     username + "@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// findUser reads through a fresh unit of work, i.e. outside the transaction
// under test.
func findUser(t *testing.T, mgr storage.Manager, id uuid.UUID) (*usermodel.User, error) {
	t.Helper()
	return storage.Run(context.Background(), mgr, nil,
		func(ctx context.Context, uow storage.UnitOfWork) (*usermodel.User, error) {
			return uow.Users().FindByID(ctx, id)
		})
}

func TestRun_CommitsAndReturnsResultUnchanged(t *testing.T) {
	mgr := memory.NewManager()
	u := newUser("jake")

	got, err := storage.Run(context.Background(), mgr, nil,
		func(ctx context.Context, uow storage.UnitOfWork) (*usermodel.User, error) {
			if err := uow.Users().Create(ctx, u); err != nil {
				return nil, err
			}
			return u, nil
		})
	require.NoError(t, err)
	assert.Equal(t, u, got)

	persisted, err := findUser(t, mgr, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, persisted.Username)
}

func TestRun_RollsBackOnErrorAndPropagatesIt(t *testing.T) {
	mgr := memory.NewManager()
	u := newUser("jake")
	conflict := domainerrors.WithCode(domainerrors.KindConflict, "EMAIL_TAKEN", "email taken")

	_, err := storage.Run(context.Background(), mgr, nil,
		func(ctx context.Context, uow storage.UnitOfWork) (*usermodel.User, error) {
			if err := uow.Users().Create(ctx, u); err != nil {
				return nil, err
			}
			return nil, conflict
		})
	// The concrete typed error, not a generic one, must reach the caller.
	require.ErrorIs(t, err, conflict)
	assert.True(t, domainerrors.IsKind(err, domainerrors.KindConflict))

	_, err = findUser(t, mgr, u.ID)
	assert.Error(t, err)
}

func TestRun_SafeModeSwallowsErrorAndReturnsZero(t *testing.T) {
	mgr := memory.NewManager()

	got, err := storage.Run(context.Background(), mgr, nil,
		func(ctx context.Context, uow storage.UnitOfWork) (*usermodel.User, error) {
			return nil, domainerrors.New(domainerrors.KindValidation, "bad input")
		},
		storage.WithoutReraise())
	require.NoError(t, err)
	assert.Nil(t, got)
}

type countingLogHandler struct {
	mu      sync.Mutex
	records int
}

func (h *countingLogHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *countingLogHandler) Handle(context.Context, slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records++
	return nil
}
func (h *countingLogHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *countingLogHandler) WithGroup(string) slog.Handler      { return h }

func TestRun_SafeModeWithLoggingEmitsExactlyOneEntry(t *testing.T) {
	mgr := memory.NewManager()
	handler := &countingLogHandler{}

	got, err := storage.Run(context.Background(), mgr, nil,
		func(ctx context.Context, uow storage.UnitOfWork) (string, error) {
			return "", domainerrors.New(domainerrors.KindValidation, "bad input")
		},
		storage.WithoutReraise(),
		storage.WithErrorLog(slog.New(handler)))
	require.NoError(t, err)
	assert.Equal(t, "", got)
	assert.Equal(t, 1, handler.records)
}

func TestRun_NestedTransactionIsRejected(t *testing.T) {
	mgr := memory.NewManager()

	_, err := storage.Run(context.Background(), mgr, nil,
		func(ctx context.Context, uow storage.UnitOfWork) (struct{}, error) {
			return storage.Run(ctx, mgr, nil,
				func(ctx context.Context, uow storage.UnitOfWork) (struct{}, error) {
					return struct{}{}, nil
				})
		})
	require.ErrorIs(t, err, storage.ErrNestedTransaction)
}

func TestRun_PublishesRecordedEventsAfterCommitOnly(t *testing.T) {
	mgr := memory.NewManager()
	bus := events.NewBus(slog.New(slog.DiscardHandler))

	var seen []string
	events.Subscribe(bus, func(_ context.Context, evt events.UserRegistered) error {
		seen = append(seen, evt.Username)
		return nil
	})

	// Rolled-back work must not produce observable events.
	_, err := storage.Run(context.Background(), mgr, bus,
		func(ctx context.Context, uow storage.UnitOfWork) (struct{}, error) {
			uow.Record(events.UserRegistered{Username: "ghost"})
			return struct{}{}, errors.New("abort")
		})
	require.Error(t, err)
	assert.Empty(t, seen)

	_, err = storage.Run(context.Background(), mgr, bus,
		func(ctx context.Context, uow storage.UnitOfWork) (struct{}, error) {
			uow.Record(events.UserRegistered{Username: "jake"})
			return struct{}{}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"jake"}, seen)
}

func TestRunBatch_AllOrNothing(t *testing.T) {
	mgr := memory.NewManager()
	users := []*usermodel.User{newUser("one"), newUser("two"), newUser("three")}

	createOp := func(u *usermodel.User) storage.BatchOp {
		return func(ctx context.Context, uow storage.UnitOfWork) error {
			return uow.Users().Create(ctx, u)
		}
	}

	boom := errors.New("third op failed")
	err := storage.RunBatch(context.Background(), mgr, nil, []storage.BatchOp{
		createOp(users[0]),
		createOp(users[1]),
		func(ctx context.Context, uow storage.UnitOfWork) error { return boom },
	})
	require.ErrorIs(t, err, boom)

	// The first two writes rolled back with the third.
	for _, u := range users[:2] {
		_, err := findUser(t, mgr, u.ID)
		assert.Error(t, err)
	}

	// A clean batch commits everything at once.
	err = storage.RunBatch(context.Background(), mgr, nil, []storage.BatchOp{
		createOp(users[0]),
		createOp(users[1]),
		createOp(users[2]),
	})
	require.NoError(t, err)
	for _, u := range users {
		_, err := findUser(t, mgr, u.ID)
		assert.NoError(t, err)
	}
}

// fakeManager instruments the Tx lifecycle so release accounting can be
// asserted precisely.
type fakeManager struct {
	commitErr error
	last      *fakeTx
}

func (m *fakeManager) Begin(context.Context) (storage.Tx, error) {
	m.last = &fakeTx{commitErr: m.commitErr}
	return m.last, nil
}

type fakeTx struct {
	commitErr error
	done      bool
	released  int
	recorded  []events.Event
}

func (t *fakeTx) Users() storage.UserStore         { return nil }
func (t *fakeTx) Followers() storage.FollowerStore { return nil }
func (t *fakeTx) Articles() storage.ArticleStore   { return nil }
func (t *fakeTx) Favorites() storage.FavoriteStore { return nil }
func (t *fakeTx) Comments() storage.CommentStore   { return nil }
func (t *fakeTx) Tags() storage.TagStore           { return nil }
func (t *fakeTx) Record(evt events.Event)          { t.recorded = append(t.recorded, evt) }
func (t *fakeTx) Events() []events.Event           { return t.recorded }

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.done = true
	t.released++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.released++
	return nil
}

func TestRun_SessionReleasedExactlyOnce(t *testing.T) {
	t.Run("on success", func(t *testing.T) {
		mgr := &fakeManager{}
		_, err := storage.Run(context.Background(), mgr, nil,
			func(ctx context.Context, uow storage.UnitOfWork) (int, error) { return 1, nil })
		require.NoError(t, err)
		assert.Equal(t, 1, mgr.last.released)
	})

	t.Run("on failure", func(t *testing.T) {
		mgr := &fakeManager{}
		_, err := storage.Run(context.Background(), mgr, nil,
			func(ctx context.Context, uow storage.UnitOfWork) (int, error) {
				return 0, errors.New("nope")
			})
		require.Error(t, err)
		assert.Equal(t, 1, mgr.last.released)
	})

	t.Run("on commit failure rollback is still attempted", func(t *testing.T) {
		commitErr := errors.New("constraint violated at commit")
		mgr := &fakeManager{commitErr: commitErr}
		_, err := storage.Run(context.Background(), mgr, nil,
			func(ctx context.Context, uow storage.UnitOfWork) (int, error) { return 1, nil })
		require.ErrorIs(t, err, commitErr)
		assert.Equal(t, 1, mgr.last.released)
	})
}

func TestRun_CommitFailureNotPublished(t *testing.T) {
	bus := events.NewBus(slog.New(slog.DiscardHandler))
	var published int
	events.Subscribe(bus, func(context.Context, events.UserRegistered) error {
		published++
		return nil
	})

	mgr := &fakeManager{commitErr: errors.New("commit failed")}
	_, err := storage.Run(context.Background(), mgr, bus,
		func(ctx context.Context, uow storage.UnitOfWork) (int, error) {
			uow.Record(events.UserRegistered{Username: "jake"})
			return 1, nil
		})
	require.Error(t, err)
	assert.Zero(t, published)
}
