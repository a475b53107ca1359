// Package handlers contains the in-process subscribers wired onto the event
// bus at startup.
package handlers

import (
	"context"
	"log/slog"

	"conduit/internal/events"
	"conduit/internal/platform/metrics"
)

// Analytics feeds domain activity into Prometheus counters and the activity
// log.
type Analytics struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewAnalytics(logger *slog.Logger, m *metrics.Metrics) *Analytics {
	return &Analytics{logger: logger, metrics: m}
}

func (a *Analytics) OnUserRegistered(ctx context.Context, evt events.UserRegistered) error {
	a.metrics.UsersRegistered.Inc()
	a.logger.InfoContext(ctx, "user registered",
		"user_id", evt.UserID,
		"username", evt.Username,
	)
	return nil
}

func (a *Analytics) OnArticleCreated(ctx context.Context, evt events.ArticleCreated) error {
	a.metrics.ArticlesCreated.Inc()
	a.logger.InfoContext(ctx, "article created",
		"article_id", evt.ArticleID,
		"slug", evt.Slug,
	)
	return nil
}

func (a *Analytics) OnCommentAdded(ctx context.Context, evt events.CommentAdded) error {
	a.metrics.CommentsCreated.Inc()
	a.logger.InfoContext(ctx, "comment added",
		"comment_id", evt.CommentID,
		"article_id", evt.ArticleID,
	)
	return nil
}
