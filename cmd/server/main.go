package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	articlehandler "conduit/internal/article/handler"
	articleservice "conduit/internal/article/service"
	commenthandler "conduit/internal/comment/handler"
	commentservice "conduit/internal/comment/service"
	"conduit/internal/events"
	"conduit/internal/events/handlers"
	"conduit/internal/events/kafka"
	jwttoken "conduit/internal/jwt_token"
	"conduit/internal/platform/config"
	"conduit/internal/platform/httpserver"
	"conduit/internal/platform/logger"
	"conduit/internal/platform/metrics"
	"conduit/internal/platform/postgres"
	platformredis "conduit/internal/platform/redis"
	"conduit/internal/storage"
	"conduit/internal/storage/memory"
	storagepostgres "conduit/internal/storage/postgres"
	taghandler "conduit/internal/tag/handler"
	tagservice "conduit/internal/tag/service"
	httptransport "conduit/internal/transport/http"
	userhandler "conduit/internal/user/handler"
	userservice "conduit/internal/user/service"
)

const (
	tagCacheTTL     = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Debug)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	health := make(map[string]httptransport.HealthCheck)

	var mgr storage.Manager
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		pgMgr := storagepostgres.NewManager(pool)
		if err := pgMgr.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		mgr = pgMgr
		health["postgres"] = pool.Ping
	} else {
		log.Warn("DATABASE_URL not set, falling back to in-memory storage")
		mgr = memory.NewManager()
	}

	cache, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if cache != nil {
		defer cache.Close()
		health["redis"] = cache.Health
	}

	bus := events.NewBus(log, events.WithObserver(m.ObserveBus()))
	tags := tagservice.New(mgr, cache, tagCacheTTL, log)
	handlers.RegisterAll(bus, log, m, tags)

	// Optional decorators stack on top of the in-process bus. Subscriptions
	// stay on the base bus; publishers go through the full stack.
	var pub events.Publisher = bus
	if cfg.EventLogPath != "" {
		persistent, err := events.NewPersistentBus(pub, cfg.EventLogPath, log)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		pub = persistent
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaBus, err := kafka.NewBus(pub, cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := kafkaBus.Close(flushCtx); err != nil {
				log.Error("kafka flush on shutdown failed", "error", err)
			}
		}()
		pub = kafkaBus
	}

	tokens := jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL)
	validator := jwttoken.NewValidatorAdapter(tokens)

	users := userservice.New(mgr, pub, tokens, log)
	articles := articleservice.New(mgr, pub, log)
	comments := commentservice.New(mgr, pub, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Metrics:  m,
		Users:    userhandler.New(users, log, validator),
		Articles: articlehandler.New(articles, log, validator),
		Comments: commenthandler.New(comments, log, validator),
		Tags:     taghandler.New(tags, log),
		Health:   health,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
