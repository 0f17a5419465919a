package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/chatdesk/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const defaultQueueSize = 1024

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithQueueSize sets how many events may wait for dispatch once the bus runs
func WithQueueSize(size int) BusOption {
	return func(b *InMemoryEventBus) {
		if size > 0 {
			b.queueSize = size
		}
	}
}

// InMemoryEventBus implements EventBus with in-memory pub/sub.
//
// Before Start, Publish dispatches synchronously. Once started, Publish only
// enqueues and a single worker dispatches in order; a full queue drops the
// event with a warning. Publish never returns a handler error.
type InMemoryEventBus struct {
	registry  *HandlerRegistry
	logger    *zap.Logger
	running   atomic.Bool
	queueSize int
	queue     chan queuedEvent
	wg        sync.WaitGroup
	mu        sync.RWMutex
	dropped   atomic.Int64
}

type queuedEvent struct {
	ctx   context.Context
	event shared.DomainEvent
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	b := &InMemoryEventBus{
		registry:  NewHandlerRegistry(),
		logger:    logger.Named("event_bus"),
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish hands events to their handlers. Handler failures are logged only.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	// handlers outlive the caller's request
	ctx = context.WithoutCancel(ctx)

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, event := range events {
		if !b.running.Load() {
			b.dispatch(ctx, event)
			continue
		}
		select {
		case b.queue <- queuedEvent{ctx: ctx, event: event}:
		default:
			b.dropped.Add(1)
			b.logger.Warn("event queue full, dropping event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
			)
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types, or the handler's
// own EventTypes when none are given
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start switches the bus to asynchronous dispatch
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running.Load() {
		return nil
	}
	b.queue = make(chan queuedEvent, b.queueSize)
	b.running.Store(true)

	b.wg.Add(1)
	go b.worker(b.queue)

	b.logger.Info("event bus started", zap.Int("queue_size", b.queueSize))
	return nil
}

// Stop drains queued events and returns to synchronous dispatch. It gives up
// waiting when ctx is done.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running.Load() {
		b.mu.Unlock()
		return nil
	}
	b.running.Store(false)
	close(b.queue)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped", zap.Int64("dropped", b.dropped.Load()))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns how many events were discarded because the queue was full
func (b *InMemoryEventBus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *InMemoryEventBus) worker(queue <-chan queuedEvent) {
	defer b.wg.Done()
	for q := range queue {
		b.dispatch(q.ctx, q.event)
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			b.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
		}
	}
}

// dispatchToHandler isolates the bus from a panicking handler
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
