package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Test", uuid.New())}
}

// testHandler records handled events into a shared journal
type testHandler struct {
	name    string
	types   []string
	err     error
	panics  bool
	journal *[]string
	mu      sync.Mutex
	handled []shared.DomainEvent
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.journal != nil {
		*h.journal = append(*h.journal, h.name)
	}
	if h.panics {
		panic("boom")
	}
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.types }

func TestInMemoryEventBus_PublishOrder(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	var journal []string

	bus.Subscribe(&testHandler{name: "first", journal: &journal}, "payment.post_update")
	bus.Subscribe(&testHandler{name: "wildcard", journal: &journal})
	bus.Subscribe(&testHandler{name: "second", journal: &journal}, "payment.post_update")
	bus.Subscribe(&testHandler{name: "other", journal: &journal}, "sale.post_update")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("payment.post_update")))
	assert.Equal(t, []string{"first", "wildcard", "second"}, journal)
}

func TestInMemoryEventBus_PublishCollectsErrors(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	errFirst := errors.New("first failed")

	failing := &testHandler{types: []string{"E"}, err: errFirst}
	panicking := &testHandler{types: []string{"E"}, panics: true}
	ok := &testHandler{types: []string{"E"}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(ok)

	err := bus.Publish(context.Background(), newTestEvent("E"))

	require.Error(t, err)
	assert.ErrorIs(t, err, errFirst)
	assert.Contains(t, err.Error(), "panicked")
	assert.Len(t, ok.handled, 1)
}

func TestInMemoryEventBus_Notify(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	handler := &testHandler{}
	bus.SubscribeChannel(handler, shared.ChannelStockUnit, shared.NotificationPostUpdate)

	id := uuid.New()
	require.NoError(t, bus.Notify(context.Background(), shared.ChannelStockUnit, shared.NotificationPostUpdate, id, "unit"))
	require.NoError(t, bus.Notify(context.Background(), shared.ChannelStockUnit, shared.NotificationPreUpdate, id, "unit"))

	require.Len(t, handler.handled, 1)
	n, ok := handler.handled[0].(*shared.EntityNotification)
	require.True(t, ok)
	assert.Equal(t, "stock_unit.post_update", n.EventType())
	assert.Equal(t, id, n.AggregateID())
	assert.Equal(t, "unit", n.Subject)

	err := bus.Notify(context.Background(), shared.ChannelStockUnit, shared.NotificationKind("bogus"), id, nil)
	assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	handler := &testHandler{types: []string{"E"}}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("E")))
	bus.Unsubscribe(handler)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("E")))

	assert.Len(t, handler.handled, 1)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, bus.Stop(ctx))
	assert.ErrorIs(t, bus.Publish(ctx, newTestEvent("E")), ErrBusStopped)

	require.NoError(t, bus.Start(ctx))
	assert.NoError(t, bus.Publish(ctx, newTestEvent("E")))
}
