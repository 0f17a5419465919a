package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Contact", uuid.New(), uuid.New()),
	}
}

type testHandler struct {
	eventTypes []string
	err        error
	panics     bool
	block      chan struct{}

	mu      sync.Mutex
	handled []shared.DomainEvent
	ctxErrs []error
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	h.handled = append(h.handled, event)
	h.ctxErrs = append(h.ctxErrs, ctx.Err())
	h.mu.Unlock()
	if h.panics {
		panic("handler exploded")
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_SynchronousBeforeStart(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("ContactCreated")
	bus.Subscribe(handler)

	event := newTestEvent("ContactCreated")
	require.NoError(t, bus.Publish(context.Background(), event, newTestEvent("ContactMatched")))

	handled := handler.getHandled()
	require.Len(t, handled, 1)
	assert.Equal(t, event, handled[0])
}

func TestInMemoryEventBus_HandlerFailuresAreSwallowed(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newTestHandler("ContactMerged")
	failing.err = errors.New("metrics backend down")
	panicking := newTestHandler("ContactMerged")
	panicking.panics = true
	healthy := newTestHandler("ContactMerged")

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	assert.NoError(t, bus.Publish(context.Background(), newTestEvent("ContactMerged")))
	assert.Len(t, healthy.getHandled(), 1)
}

func TestInMemoryEventBus_AsyncDispatchOutlivesCaller(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("ContactCreated")
	bus.Subscribe(handler)
	require.NoError(t, bus.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(ctx, newTestEvent("ContactCreated")))
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, bus.Stop(stopCtx))

	require.Len(t, handler.getHandled(), 1)
	handler.mu.Lock()
	assert.NoError(t, handler.ctxErrs[0])
	handler.mu.Unlock()
}

func TestInMemoryEventBus_FullQueueDrops(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithQueueSize(1))
	handler := newTestHandler("ContactCreated")
	handler.block = make(chan struct{})
	bus.Subscribe(handler)
	require.NoError(t, bus.Start(context.Background()))

	// first event occupies the worker, second fills the queue
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("ContactCreated")))
	assert.Eventually(t, func() bool { return len(bus.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("ContactCreated")))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("ContactCreated")))

	assert.Equal(t, int64(1), bus.Dropped())

	close(handler.block)
	require.NoError(t, bus.Stop(context.Background()))
	assert.Len(t, handler.getHandled(), 2)
}

func TestInMemoryEventBus_StartStopIdempotent(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	require.NoError(t, bus.Stop(context.Background()))
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Stop(context.Background()))
	require.NoError(t, bus.Stop(context.Background()))
}
