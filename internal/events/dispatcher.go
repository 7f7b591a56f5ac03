package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans ticket events out to subscribers once the originating change has committed.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// localDispatcher runs subscribers synchronously in the publishing goroutine.
type localDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	logger    *zap.Logger
}

// NewInMemoryDispatcher creates a dispatcher that keeps subscribers in process.
func NewInMemoryDispatcher(logger *zap.Logger) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &localDispatcher{
		listeners: make(map[EventType][]EventHandler),
		logger:    logger.Named("ticket.events"),
	}
}

// Publish invokes every subscriber of event.Type. A failing or panicking subscriber does not
// stop the others; their failures are logged with the ticket they concern and joined.
func (d *localDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	var errs []error
	for i, handler := range handlers {
		if err := d.run(ctx, handler, event); err != nil {
			d.logger.Warn("ticket event subscriber failed",
				zap.String("event_type", string(event.Type)),
				zap.String("tenant_id", event.TenantID),
				zap.String("ticket_id", event.TicketID),
				zap.Int("subscriber", i),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s subscriber %d for ticket %s: %w", event.Type, i, event.TicketID, err))
		}
	}
	return errors.Join(errs...)
}

func (d *localDispatcher) run(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return handler(ctx, event)
}

// Subscribe registers a handler for the given event type.
func (d *localDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}
