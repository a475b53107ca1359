package handlers

import (
	"log/slog"

	"conduit/internal/events"
	"conduit/internal/platform/metrics"
)

// RegisterAll subscribes the standard handler set. Analytics and maintenance
// run asynchronously; the security trail runs synchronously so it is written
// before the request completes.
func RegisterAll(bus *events.Bus, logger *slog.Logger, m *metrics.Metrics, tags TagCache) {
	analytics := NewAnalytics(logger, m)
	events.SubscribeAsync(bus, analytics.OnUserRegistered)
	events.SubscribeAsync(bus, analytics.OnArticleCreated)
	events.SubscribeAsync(bus, analytics.OnCommentAdded)

	security := NewSecurity(logger)
	events.Subscribe(bus, security.OnLoginAttempted)
	events.Subscribe(bus, security.OnPasswordChanged)

	maintenance := NewMaintenance(logger, tags)
	events.Subscribe(bus, maintenance.OnTagCreated)
	events.SubscribeAsync(bus, maintenance.OnArticleDeleted)
}
