package events

import (
	"context"

	"ddd-users/domain/shared"
)

// Handler reacts to a dispatched domain event.
type Handler interface {
	Handle(ctx context.Context, event shared.DomainEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event shared.DomainEvent) error

func (f HandlerFunc) Handle(ctx context.Context, event shared.DomainEvent) error {
	return f(ctx, event)
}
