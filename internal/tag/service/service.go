// Package service implements the global tag listing with a Redis cache in
// front of the store.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	platformredis "conduit/internal/platform/redis"
	"conduit/internal/storage"
	"conduit/pkg/domainerrors"
)

const cacheKey = "conduit:tags"

// Service lists tags, cache-aside. cache may be nil, in which case every
// request hits the store.
type Service struct {
	mgr    storage.Manager
	cache  *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(mgr storage.Manager, cache *platformredis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		mgr:    mgr,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// List returns every known tag, alphabetically. Cache failures degrade to the
// store rather than failing the request.
func (s *Service) List(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var tags []string
			if err := json.Unmarshal(cached, &tags); err == nil {
				return tags, nil
			}
			s.logger.WarnContext(ctx, "dropping malformed tag cache entry", "error", err)
			_ = s.cache.Del(ctx, cacheKey).Err()
		}
	}

	tags, err := storage.Run(ctx, s.mgr, nil,
		func(ctx context.Context, uow storage.UnitOfWork) ([]string, error) {
			tags, err := uow.Tags().All(ctx)
			if err != nil {
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "list tags")
			}
			return tags, nil
		})
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}

	if s.cache != nil {
		if payload, err := json.Marshal(tags); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.WarnContext(ctx, "failed to cache tags", "error", err)
			}
		}
	}
	return tags, nil
}

// Invalidate drops the cached tag list. Called when a new tag appears.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate tag cache", "error", err)
	}
}
