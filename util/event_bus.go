// util/event_bus.go

package util

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/authz/logging"
	"github.com/dev-mohitbeniwal/authz/pdp/engine"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
)

// EventHandler handles one invalidation event
type EventHandler func(context.Context, pdp_model.InvalidationEvent) error

// EventBus fans invalidation events out to the handlers subscribed to
// their type. Handlers run on their own goroutines.
type EventBus struct {
	subscribers map[pdp_model.InvalidationType][]EventHandler
	mu          sync.RWMutex
	errorChan   chan error
	inflight    sync.WaitGroup
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[pdp_model.InvalidationType][]EventHandler),
		errorChan:   make(chan error, 100),
	}
}

// Subscribe adds a new subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType pdp_model.InvalidationType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], handler)
}

// Publish sends an event to all subscribers and reports whether any exist.
func (eb *EventBus) Publish(ctx context.Context, event pdp_model.InvalidationEvent) bool {
	eb.mu.RLock()
	handlers := eb.subscribers[event.Type]
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		logger.Debug("No subscribers for event", zap.String("eventType", string(event.Type)))
		return false
	}

	for _, handler := range handlers {
		eb.inflight.Add(1)
		go func(h EventHandler) {
			defer eb.inflight.Done()
			if err := h(ctx, event); err != nil {
				select {
				case eb.errorChan <- fmt.Errorf("event handler error: %s: %w", event.Type, err):
				default:
					logger.Error("Error channel full, logging event handler error",
						zap.Error(err),
						zap.String("eventType", string(event.Type)))
				}
			}
		}(handler)
	}
	return true
}

// Wait blocks until every handler started so far has returned.
func (eb *EventBus) Wait() {
	eb.inflight.Wait()
}

// Start begins processing handler errors
func (eb *EventBus) Start(ctx context.Context) {
	go eb.processErrors(ctx)
}

func (eb *EventBus) processErrors(ctx context.Context) {
	for {
		select {
		case err := <-eb.errorChan:
			logger.Error("Event handler error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}

// SubscribeInvalidator routes every invalidation event type to inv.
func (eb *EventBus) SubscribeInvalidator(inv engine.Invalidator) {
	handler := func(_ context.Context, ev pdp_model.InvalidationEvent) error {
		return engine.ApplyInvalidation(inv, ev)
	}
	for _, t := range []pdp_model.InvalidationType{
		pdp_model.InvalidateRoleAssignment,
		pdp_model.InvalidatePolicy,
		pdp_model.InvalidatePermission,
		pdp_model.InvalidateRole,
		pdp_model.InvalidateTenant,
	} {
		eb.Subscribe(t, handler)
	}
}
