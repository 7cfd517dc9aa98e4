package outbox

import (
	"context"

	"ddd-users/domain/events"
	"ddd-users/domain/shared"
)

// Recorder is an event handler that copies domain events into the outbox.
// It runs after the originating transaction committed, so a crash between
// commit and record loses the message; subscribers that need more must
// record inside the unit of work themselves.
type Recorder struct {
	store *Store
}

func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) Handle(ctx context.Context, event shared.DomainEvent) error {
	return r.store.SaveEvent(ctx, event)
}

// Subscribe registers the recorder for each kind.
func (r *Recorder) Subscribe(registry *events.Registry, kinds ...shared.EventKind) {
	for _, kind := range kinds {
		registry.Register(kind, r)
	}
}

var _ events.Handler = (*Recorder)(nil)
