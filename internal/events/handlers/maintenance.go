package handlers

import (
	"context"
	"log/slog"

	"conduit/internal/events"
)

// TagCache is the slice of the tag service the maintenance handler needs.
type TagCache interface {
	Invalidate(ctx context.Context)
}

// Maintenance keeps derived state consistent as the domain changes.
type Maintenance struct {
	logger *slog.Logger
	tags   TagCache
}

func NewMaintenance(logger *slog.Logger, tags TagCache) *Maintenance {
	return &Maintenance{logger: logger, tags: tags}
}

// OnTagCreated drops the cached tag list so the new tag becomes visible.
func (m *Maintenance) OnTagCreated(ctx context.Context, evt events.TagCreated) error {
	m.tags.Invalidate(ctx)
	m.logger.DebugContext(ctx, "tag cache invalidated", "tag", evt.Tag)
	return nil
}

func (m *Maintenance) OnArticleDeleted(ctx context.Context, evt events.ArticleDeleted) error {
	m.logger.InfoContext(ctx, "article deleted",
		"article_id", evt.ArticleID,
		"author_id", evt.AuthorID,
	)
	return nil
}
