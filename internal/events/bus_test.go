package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(zap.NewNop(), 16)

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	bus.Subscribe(StatusChanged, HandlerFunc(func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.(StatusChangedEvent).Text)
		if len(got) == 3 {
			close(done)
		}
		return nil
	}))

	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, bus.Publish(StatusChangedEvent{BaseEvent: NewBase(StatusChanged), Text: text}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events not delivered")
	}
	mu.Lock()
	assert.Equal(t, []string{"a", "b", "c"}, got)
	mu.Unlock()
	require.NoError(t, bus.Shutdown(context.Background()))
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	defer bus.Shutdown(context.Background())

	calls := 0
	sub := bus.Subscribe(ScanCompleted, HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, bus.Stats().HandlersPerType[ScanCompleted])

	sub.Unsubscribe()
	require.NoError(t, bus.PublishSync(context.Background(), ScanCompletedEvent{BaseEvent: NewBase(ScanCompleted)}))
	assert.Zero(t, calls)
	assert.Zero(t, bus.Stats().HandlersPerType[ScanCompleted])
}

func TestPublishSyncCollectsErrors(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	defer bus.Shutdown(context.Background())

	boom := errors.New("boom")
	bus.Subscribe(ScanFailed, HandlerFunc(func(context.Context, Event) error { return boom }))

	err := bus.PublishSync(context.Background(), ScanFailedEvent{BaseEvent: NewBase(ScanFailed)})
	assert.ErrorIs(t, err, boom)
}

func TestPublishAfterShutdown(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.ErrorIs(t, bus.Publish(PricesUpdatedEvent{BaseEvent: NewBase(PricesUpdated)}), ErrBusClosed)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(StatusChangedEvent{BaseEvent: NewBase(StatusChanged)}))
}

func TestForward(t *testing.T) {
	ch := make(chan Event, 1)
	h := Forward(ch)
	require.NoError(t, h.Handle(context.Background(), StatusChangedEvent{BaseEvent: NewBase(StatusChanged), Text: "x"}))
	// full channel drops without blocking
	require.NoError(t, h.Handle(context.Background(), StatusChangedEvent{BaseEvent: NewBase(StatusChanged), Text: "y"}))
	assert.Equal(t, "x", (<-ch).(StatusChangedEvent).Text)
}
