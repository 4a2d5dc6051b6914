package pubsub

import "context"

const (
	// CreatedEvent announces a new item, such as a user turn.
	CreatedEvent EventType = "created"
	// UpdatedEvent reports progress on an item.
	UpdatedEvent EventType = "updated"
	// DeletedEvent announces a removed item.
	DeletedEvent EventType = "deleted"
	// FinishedEvent carries the final state of an item.
	FinishedEvent EventType = "finished"
)

type (
	// EventType identifies what happened.
	EventType string

	// Event is a typed notification.
	Event[T any] struct {
		Type    EventType
		Payload T
	}

	// Subscriber hands out event channels that close with the context.
	Subscriber[T any] interface {
		Subscribe(context.Context) <-chan Event[T]
	}

	// Publisher emits events.
	Publisher[T any] interface {
		Publish(EventType, T)
	}
)
