package event

import (
	"sync"

	"github.com/erp/commerce/internal/domain/shared"
)

type registration struct {
	handler shared.EventHandler
	types   map[string]struct{} // empty means every event
}

func (r registration) matches(eventType string) bool {
	if len(r.types) == 0 {
		return true
	}
	_, ok := r.types[eventType]
	return ok
}

// HandlerRegistry keeps handlers in subscription order. Handlers for a
// given event type are returned in the order they were registered,
// wildcard handlers included.
type HandlerRegistry struct {
	mu            sync.RWMutex
	registrations []registration
}

// NewHandlerRegistry creates a new handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Register adds a handler for specific event types.
// If no event types are provided, the handler receives all events.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make(map[string]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = struct{}{}
	}
	r.registrations = append(r.registrations, registration{handler: handler, types: types})
}

// RegisterChannel subscribes a handler to notification kinds of one channel
func (r *HandlerRegistry) RegisterChannel(handler shared.EventHandler, channel shared.Channel, kinds ...shared.NotificationKind) {
	types := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		types = append(types, shared.EventName(channel, kind))
	}
	r.Register(handler, types...)
}

// Unregister removes every registration of the handler
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.registrations[:0]
	for _, reg := range r.registrations {
		if reg.handler != handler {
			kept = append(kept, reg)
		}
	}
	r.registrations = kept
}

// GetHandlers returns the handlers interested in eventType
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]shared.EventHandler, 0, len(r.registrations))
	for _, reg := range r.registrations {
		if reg.matches(eventType) {
			result = append(result, reg.handler)
		}
	}
	return result
}

// Len returns the number of registrations
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.registrations)
}
