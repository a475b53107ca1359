package events_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/events"
)

func TestPersistentBusLogsAndReplays(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	bus := events.NewBus(logger)

	var seen []string
	events.Subscribe(bus, func(_ context.Context, evt events.ArticleCreated) error {
		seen = append(seen, evt.Slug)
		return nil
	})

	path := filepath.Join(t.TempDir(), "events", "log.jsonl")
	pb, err := events.NewPersistentBus(bus, path, logger)
	require.NoError(t, err)

	ctx := context.Background()
	pb.Publish(ctx, events.ArticleCreated{ArticleID: uuid.New(), Slug: "first"})
	pb.PublishAsync(ctx, events.ArticleCreated{ArticleID: uuid.New(), Slug: "second"})
	pb.Publish(ctx, events.UserRegistered{UserID: uuid.New(), Username: "jake"})

	// Events still reach the inner bus.
	assert.Equal(t, []string{"first", "second"}, seen)

	all, err := pb.Replay("")
	require.NoError(t, err)
	require.Len(t, all, 3)

	articles, err := pb.Replay(events.NameArticleCreated)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, events.NameArticleCreated, articles[0].EventType)
	assert.Contains(t, string(articles[0].Data), `"slug":"first"`)
}

func TestPersistentBusReplayMissingFile(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	pb, err := events.NewPersistentBus(events.NewBus(logger), filepath.Join(t.TempDir(), "log.jsonl"), logger)
	require.NoError(t, err)

	recs, err := pb.Replay("")
	require.NoError(t, err)
	assert.Empty(t, recs)
}
