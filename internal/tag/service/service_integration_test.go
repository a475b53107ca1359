//go:build integration

package service_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformredis "conduit/internal/platform/redis"
	"conduit/internal/storage"
	"conduit/internal/storage/memory"
	"conduit/internal/tag/service"
	"conduit/pkg/testutil/containers"
)

func seedTags(t *testing.T, mgr *memory.Manager, tags ...string) {
	t.Helper()
	_, err := storage.Run(context.Background(), mgr, nil,
		func(ctx context.Context, uow storage.UnitOfWork) (struct{}, error) {
			_, err := uow.Tags().ReplaceForArticle(ctx, uuid.New(), tags)
			return struct{}{}, err
		})
	require.NoError(t, err)
}

func TestList_CacheAside(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	require.NoError(t, rc.FlushAll(context.Background()))

	mgr := memory.NewManager()
	cache := &platformredis.Client{Client: rc.Client}
	svc := service.New(mgr, cache, time.Minute, slog.New(slog.DiscardHandler))

	ctx := context.Background()
	seedTags(t, mgr, "go")

	tags, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, tags)

	// The next read is served from the cache: new tags in the store do not
	// show up until invalidation.
	seedTags(t, mgr, "rust")
	tags, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, tags)

	svc.Invalidate(ctx)
	tags, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "rust"}, tags)
}
