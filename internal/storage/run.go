package storage

import (
	"context"
	"errors"
	"log/slog"

	"conduit/internal/events"
)

// ErrNestedTransaction is returned when a business function wrapped by Run
// calls Run again on the same context. Each orchestration call owns exactly
// one unit of work; nesting is disallowed.
var ErrNestedTransaction = errors.New("storage: nested transaction")

type runOptions struct {
	reraise bool
	logger  *slog.Logger
}

// RunOption configures a single Run or RunBatch invocation.
type RunOption func(*runOptions)

// WithoutReraise switches Run into safe mode: a failure inside the wrapped
// function still rolls back, but Run returns the zero value and a nil error
// instead of propagating.
func WithoutReraise() RunOption {
	return func(o *runOptions) { o.reraise = false }
}

// WithErrorLog makes Run log failures before handling them. Logging is
// independent of reraise mode.
func WithErrorLog(logger *slog.Logger) RunOption {
	return func(o *runOptions) { o.logger = logger }
}

type inTxKey struct{}

// Run executes fn inside a fresh unit of work: it begins a transaction,
// commits when fn returns nil, rolls back when fn returns an error, and in
// every case releases the underlying session exactly once. On successful
// commit, events recorded on the unit of work are published to bus (which
// may be nil).
//
// If commit itself fails, rollback is still attempted and the commit error
// propagates through the same path as a failure of fn.
func Run[T any](
	ctx context.Context,
	mgr Manager,
	bus events.Publisher,
	fn func(ctx context.Context, uow UnitOfWork) (T, error),
	opts ...RunOption,
) (T, error) {
	var zero T
	o := applyOptions(opts)

	if ctx.Value(inTxKey{}) != nil {
		return fail(zero, ErrNestedTransaction, o)
	}
	ctx = context.WithValue(ctx, inTxKey{}, true)

	tx, err := mgr.Begin(ctx)
	if err != nil {
		return fail(zero, err, o)
	}
	// Releases the session on every exit path, including panics and
	// cancellation unwinding. A no-op once Commit has succeeded.
	defer func() { _ = tx.Rollback(ctx) }()

	result, err := fn(ctx, tx)
	if err != nil {
		return fail(zero, err, o)
	}
	if err := tx.Commit(ctx); err != nil {
		return fail(zero, err, o)
	}

	publish(ctx, bus, tx.Events())
	return result, nil
}

// BatchOp is one step of a batch. All steps of one RunBatch call share a
// single unit of work.
type BatchOp func(ctx context.Context, uow UnitOfWork) error

// RunBatch executes every op under one shared unit of work and commits once
// at the end. If any op fails, the whole batch rolls back and no partial
// writes remain visible. This is deliberately not a loop over Run, which
// would open one transaction per op.
func RunBatch(
	ctx context.Context,
	mgr Manager,
	bus events.Publisher,
	ops []BatchOp,
	opts ...RunOption,
) error {
	o := applyOptions(opts)

	if ctx.Value(inTxKey{}) != nil {
		_, err := fail(struct{}{}, ErrNestedTransaction, o)
		return err
	}
	ctx = context.WithValue(ctx, inTxKey{}, true)

	tx, err := mgr.Begin(ctx)
	if err != nil {
		_, err = fail(struct{}{}, err, o)
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, op := range ops {
		if err := op(ctx, tx); err != nil {
			_, err = fail(struct{}{}, err, o)
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		_, err = fail(struct{}{}, err, o)
		return err
	}

	publish(ctx, bus, tx.Events())
	return nil
}

func applyOptions(opts []RunOption) runOptions {
	o := runOptions{reraise: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func fail[T any](zero T, err error, o runOptions) (T, error) {
	if o.logger != nil {
		o.logger.Error("transaction failed", "error", err)
	}
	if !o.reraise {
		return zero, nil
	}
	return zero, err
}

func publish(ctx context.Context, bus events.Publisher, evts []events.Event) {
	if bus == nil {
		return
	}
	for _, evt := range evts {
		bus.PublishAsync(ctx, evt)
	}
}
