package handlers_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"conduit/internal/events"
	"conduit/internal/events/handlers"
	"conduit/internal/platform/metrics"
)

// One registry-backed metrics instance for the whole test binary; promauto
// panics on duplicate registration.
var testMetrics = metrics.New()

type fakeTagCache struct {
	invalidations int
}

func (f *fakeTagCache) Invalidate(context.Context) { f.invalidations++ }

func TestRegisterAll(t *testing.T) {
	bus := events.NewBus(slog.New(slog.DiscardHandler))
	tags := &fakeTagCache{}
	handlers.RegisterAll(bus, slog.New(slog.DiscardHandler), testMetrics, tags)

	before := testutil.ToFloat64(testMetrics.UsersRegistered)
	bus.PublishAsync(context.Background(), events.UserRegistered{Username: "jake"})
	assert.Equal(t, before+1, testutil.ToFloat64(testMetrics.UsersRegistered))

	beforeArticles := testutil.ToFloat64(testMetrics.ArticlesCreated)
	bus.PublishAsync(context.Background(), events.ArticleCreated{Slug: "hello"})
	assert.Equal(t, beforeArticles+1, testutil.ToFloat64(testMetrics.ArticlesCreated))

	// Tag cache invalidation is synchronous, a plain Publish reaches it.
	bus.Publish(context.Background(), events.TagCreated{Tag: "go"})
	assert.Equal(t, 1, tags.invalidations)
}
