package shared

import "context"

// EventHandler consumes domain events.
type EventHandler interface {
	// Handle processes a single event.
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes names the event types this handler wants.
	// An empty slice subscribes the handler to every event.
	EventTypes() []string
}

// EventPublisher is the write side of the bus. Workflows hold this
// interface so they can emit events without knowing the transport.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber is the read side of the bus.
type EventSubscriber interface {
	// Subscribe registers a handler, optionally restricted to the
	// given event types.
	Subscribe(handler EventHandler, eventTypes ...string)
	// Unsubscribe removes a handler from every subscription.
	Unsubscribe(handler EventHandler)
}

// EventBus combines both sides with lifecycle control.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
