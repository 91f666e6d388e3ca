// internal/events/handler.go
package events

import (
	"context"
)

// Handler processes events of one type. Handle must not block for long: it
// runs on the bus dispatch goroutine.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc адаптирует обычную функцию к интерфейсу Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Forward returns a handler that copies events into ch, dropping them when
// ch is full.
func Forward(ch chan<- Event) Handler {
	return HandlerFunc(func(_ context.Context, e Event) error {
		select {
		case ch <- e:
		default:
		}
		return nil
	})
}

// Subscription represents a subscription to events.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id       string
	eventBus *Bus
	typ      EventType
}

func (s *subscription) Unsubscribe() {
	s.eventBus.unsubscribe(s.id, s.typ)
}
