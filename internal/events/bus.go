// Package events provides the in-process publish-subscribe mechanism used for
// post-commit side-channel notifications.
//
// The bus gives no delivery guarantee beyond "ran once in-process during this
// call". It is not a durable queue: a crash between a database commit and the
// publish call drops the event. Callers that need more persist events
// themselves (see PersistentBus for a best-effort file log).
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Event is an immutable record of something that already happened. Concrete
// events are plain structs; EventName identifies the concrete type for
// subscription routing.
type Event interface {
	EventName() string
}

// Handler reacts to a published event. A returned error is logged by the bus
// and never reaches the publisher.
type Handler func(ctx context.Context, evt Event) error

// Publisher is the narrow interface services depend on. Bus implements it, as
// do the decorators (PersistentBus, the Kafka sink bus).
type Publisher interface {
	Publish(ctx context.Context, evt Event)
	PublishAsync(ctx context.Context, evt Event)
}

// Bus dispatches events to registered handlers. Registration happens once
// during application startup; after that the tables are effectively
// read-only. Unregistration and hot-reload are not supported.
type Bus struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	handlers map[string][]Handler
	async    map[string][]Handler
	observer func(event string, handlerErr bool)
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithObserver installs a hook called once per published event and once per
// failed handler, for metrics.
func WithObserver(fn func(event string, handlerErr bool)) BusOption {
	return func(b *Bus) { b.observer = fn }
}

// NewBus constructs an empty bus. Populate subscriptions before serving
// requests.
func NewBus(logger *slog.Logger, opts ...BusOption) *Bus {
	b := &Bus{
		logger:   logger,
		handlers: make(map[string][]Handler),
		async:    make(map[string][]Handler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a synchronous handler for one concrete event type.
// Handlers for a type run in registration order on every publish.
func Subscribe[E Event](b *Bus, h func(ctx context.Context, evt E) error) {
	var zero E
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[zero.EventName()] = append(b.handlers[zero.EventName()], adapt(h))
}

// SubscribeAsync registers a handler that only runs during PublishAsync.
// Async handlers may perform I/O; they are awaited sequentially to preserve
// registration order.
func SubscribeAsync[E Event](b *Bus, h func(ctx context.Context, evt E) error) {
	var zero E
	b.mu.Lock()
	defer b.mu.Unlock()
	b.async[zero.EventName()] = append(b.async[zero.EventName()], adapt(h))
}

func adapt[E Event](h func(ctx context.Context, evt E) error) Handler {
	return func(ctx context.Context, evt Event) error {
		typed, ok := evt.(E)
		if !ok {
			return nil
		}
		return h(ctx, typed)
	}
}

// Publish invokes every synchronous handler registered for the event's type,
// in registration order, on the calling goroutine. A failing handler is
// logged and isolated: it neither stops the remaining handlers nor reaches
// the caller.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	b.mu.RLock()
	handlers := b.handlers[evt.EventName()]
	b.mu.RUnlock()

	if b.observer != nil {
		b.observer(evt.EventName(), false)
	}
	for _, h := range handlers {
		b.run(ctx, evt, h)
	}
}

// PublishAsync runs the synchronous handlers inline, then awaits the async
// handlers sequentially. Error isolation matches Publish.
func (b *Bus) PublishAsync(ctx context.Context, evt Event) {
	b.Publish(ctx, evt)

	b.mu.RLock()
	handlers := b.async[evt.EventName()]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.run(ctx, evt, h)
	}
}

func (b *Bus) run(ctx context.Context, evt Event, h Handler) {
	err := invoke(ctx, evt, h)
	if err == nil {
		return
	}
	if b.observer != nil {
		b.observer(evt.EventName(), true)
	}
	b.logger.ErrorContext(ctx, "event handler failed",
		"event", evt.EventName(),
		"error", err,
	)
}

// invoke converts a handler panic into an error so one misbehaving subscriber
// cannot take down the publisher.
func invoke(ctx context.Context, evt Event, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, evt)
}
