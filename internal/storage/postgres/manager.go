// Package postgres provides the PostgreSQL-backed storage.Manager.
//
// Each unit of work maps to one pgx transaction. Uniqueness violations are
// translated to sentinel.ErrConflict and empty results to
// sentinel.ErrNotFound, so services never see driver error types.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"conduit/internal/events"
	"conduit/internal/storage"
	"conduit/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

// Manager opens units of work backed by a pgx connection pool.
type Manager struct {
	pool *pgxpool.Pool
}

// NewManager wraps an existing pool.
func NewManager(pool *pgxpool.Pool) *Manager {
	return &Manager{pool: pool}
}

// Migrate applies the embedded schema. Statements are idempotent
// (CREATE TABLE IF NOT EXISTS), so running it on every boot is safe.
func (m *Manager) Migrate(ctx context.Context) error {
	if _, err := m.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Begin starts a transaction and returns the unit of work bound to it.
func (m *Manager) Begin(ctx context.Context) (storage.Tx, error) {
	pgxTx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &tx{tx: pgxTx}, nil
}

type tx struct {
	tx       pgx.Tx
	recorded []events.Event
}

func (t *tx) Users() storage.UserStore         { return &userStore{tx: t.tx} }
func (t *tx) Followers() storage.FollowerStore { return &followerStore{tx: t.tx} }
func (t *tx) Articles() storage.ArticleStore   { return &articleStore{tx: t.tx} }
func (t *tx) Favorites() storage.FavoriteStore { return &favoriteStore{tx: t.tx} }
func (t *tx) Comments() storage.CommentStore   { return &commentStore{tx: t.tx} }
func (t *tx) Tags() storage.TagStore           { return &tagStore{tx: t.tx} }

func (t *tx) Record(evt events.Event) {
	t.recorded = append(t.recorded, evt)
}

func (t *tx) Events() []events.Event { return t.recorded }

func (t *tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", mapError(err))
	}
	return nil
}

// Rollback releases the transaction. pgx reports ErrTxClosed once the
// transaction has committed or rolled back; that is the expected outcome of
// the unconditional deferred rollback, not a failure.
func (t *tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// mapError converts driver errors into the sentinel vocabulary stores are
// contracted to speak.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return sentinel.ErrConflict
		case "23503": // foreign_key_violation
			return sentinel.ErrNotFound
		}
	}
	return err
}
