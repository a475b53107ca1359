package events

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestBus_HandlersRunInRegistrationOrder(t *testing.T) {
	bus := NewBus(testLogger())

	var order []int
	for i := 1; i <= 3; i++ {
		Subscribe(bus, func(_ context.Context, _ UserRegistered) error {
			order = append(order, i)
			return nil
		})
	}

	bus.Publish(context.Background(), UserRegistered{UserID: uuid.New(), Username: "jake"})
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestBus_FailingHandlerIsIsolated(t *testing.T) {
	bus := NewBus(testLogger())

	var ran []string
	Subscribe(bus, func(_ context.Context, _ ArticleCreated) error {
		ran = append(ran, "first")
		return nil
	})
	Subscribe(bus, func(_ context.Context, _ ArticleCreated) error {
		return errors.New("handler blew up")
	})
	Subscribe(bus, func(_ context.Context, _ ArticleCreated) error {
		ran = append(ran, "third")
		return nil
	})

	// Publish must return normally despite the failure in the middle.
	bus.Publish(context.Background(), ArticleCreated{ArticleID: uuid.New()})
	assert.Equal(t, []string{"first", "third"}, ran)
}

func TestBus_PanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus(testLogger())

	var ran bool
	Subscribe(bus, func(_ context.Context, _ CommentAdded) error {
		panic("boom")
	})
	Subscribe(bus, func(_ context.Context, _ CommentAdded) error {
		ran = true
		return nil
	})

	require.NotPanics(t, func() {
		bus.Publish(context.Background(), CommentAdded{CommentID: uuid.New()})
	})
	assert.True(t, ran)
}

func TestBus_DispatchesByConcreteType(t *testing.T) {
	bus := NewBus(testLogger())

	var created, deleted int
	Subscribe(bus, func(_ context.Context, _ ArticleCreated) error {
		created++
		return nil
	})
	Subscribe(bus, func(_ context.Context, _ ArticleDeleted) error {
		deleted++
		return nil
	})

	bus.Publish(context.Background(), ArticleCreated{})
	bus.Publish(context.Background(), ArticleCreated{})
	bus.Publish(context.Background(), ArticleDeleted{})

	assert.Equal(t, 2, created)
	assert.Equal(t, 1, deleted)
}

func TestBus_PublishAsyncRunsSyncHandlersInline(t *testing.T) {
	bus := NewBus(testLogger())

	var calls []string
	Subscribe(bus, func(_ context.Context, _ UserFollowed) error {
		calls = append(calls, "sync")
		return nil
	})
	SubscribeAsync(bus, func(_ context.Context, _ UserFollowed) error {
		calls = append(calls, "async1")
		return nil
	})
	SubscribeAsync(bus, func(_ context.Context, _ UserFollowed) error {
		calls = append(calls, "async2")
		return nil
	})

	bus.PublishAsync(context.Background(), UserFollowed{})
	assert.Equal(t, []string{"sync", "async1", "async2"}, calls)
}

func TestBus_PublishSkipsAsyncHandlers(t *testing.T) {
	bus := NewBus(testLogger())

	var asyncRan bool
	SubscribeAsync(bus, func(_ context.Context, _ UserFollowed) error {
		asyncRan = true
		return nil
	})

	bus.Publish(context.Background(), UserFollowed{})
	assert.False(t, asyncRan)
}

func TestBus_ObserverSeesPublishesAndFailures(t *testing.T) {
	var published, failed int
	bus := NewBus(testLogger(), WithObserver(func(_ string, handlerErr bool) {
		if handlerErr {
			failed++
		} else {
			published++
		}
	}))

	Subscribe(bus, func(_ context.Context, _ TagUsed) error {
		return errors.New("nope")
	})

	bus.Publish(context.Background(), TagUsed{Tag: "go"})
	assert.Equal(t, 1, published)
	assert.Equal(t, 1, failed)
}

func TestPersistentBus_LogsBeforeDispatchAndReplays(t *testing.T) {
	bus := NewBus(testLogger())
	path := filepath.Join(t.TempDir(), "events.log")
	pb, err := NewPersistentBus(bus, path, testLogger())
	require.NoError(t, err)

	pb.Publish(context.Background(), ArticleCreated{ArticleID: uuid.New(), Slug: "hello-world"})
	pb.Publish(context.Background(), ArticleDeleted{ArticleID: uuid.New()})
	pb.PublishAsync(context.Background(), ArticleCreated{ArticleID: uuid.New(), Slug: "second"})

	all, err := pb.Replay("")
	require.NoError(t, err)
	require.Len(t, all, 3)

	createdOnly, err := pb.Replay(NameArticleCreated)
	require.NoError(t, err)
	require.Len(t, createdOnly, 2)
	assert.Equal(t, NameArticleCreated, createdOnly[0].EventType)
}

func TestPersistentBus_ReplayOnMissingFileIsEmpty(t *testing.T) {
	bus := NewBus(testLogger())
	pb, err := NewPersistentBus(bus, filepath.Join(t.TempDir(), "never-written.log"), testLogger())
	require.NoError(t, err)

	recs, err := pb.Replay("")
	require.NoError(t, err)
	assert.Empty(t, recs)
}
