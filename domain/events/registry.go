package events

import (
	"context"
	"sync"
	"time"

	"ddd-users/domain/shared"

	"go.uber.org/zap"
)

// Registry tracks aggregates with pending events and the handlers subscribed
// to each event kind. One Registry is created per application (or per test)
// and passed to whoever needs to mark or dispatch.
type Registry struct {
	mu       sync.Mutex
	handlers map[shared.EventKind][]Handler
	marked   []shared.Aggregate

	log     *zap.Logger
	metrics Metrics
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		handlers: make(map[shared.EventKind][]Handler),
		log:      zap.NewNop(),
		metrics:  NopMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MarkAggregateForDispatch records aggregate as having pending events.
// An aggregate whose id is already marked is ignored.
func (r *Registry) MarkAggregateForDispatch(aggregate shared.Aggregate) {
	if aggregate == nil {
		return
	}

	r.mu.Lock()
	_, found := r.findMarkedLocked(aggregate.ID())
	if !found {
		r.marked = append(r.marked, aggregate)
	}
	pending := len(r.marked)
	r.mu.Unlock()

	r.metrics.PendingAggregates(pending)

	if pendingEvents := aggregate.DomainEvents(); len(pendingEvents) > 0 {
		r.log.Debug("Domain event created",
			zap.String("aggregate_id", aggregate.ID().String()),
			zap.String("event_kind", pendingEvents[len(pendingEvents)-1].Kind().String()),
			zap.Bool("newly_marked", !found),
		)
	}
}

// Marker returns the capability handed to aggregates at construction time.
func (r *Registry) Marker() shared.Marker {
	return shared.MarkerFunc(r.MarkAggregateForDispatch)
}

// Register subscribes handler to kind. Registering the same handler twice
// makes it run twice per event.
func (r *Registry) Register(kind shared.EventKind, handler Handler) {
	if handler == nil {
		return
	}

	r.mu.Lock()
	r.handlers[kind] = append(r.handlers[kind], handler)
	r.mu.Unlock()
}

// RegisterFunc is Register for plain functions.
func (r *Registry) RegisterFunc(kind shared.EventKind, fn func(ctx context.Context, event shared.DomainEvent) error) {
	r.Register(kind, HandlerFunc(fn))
}

// DispatchEventsForAggregate runs the handlers for every pending event of the
// aggregate identified by id, then clears its events and unmarks it.
// An id that is not marked is a no-op: the aggregate may have been created
// and dropped without ever being persisted.
//
// The first failing handler aborts dispatch and its error is returned as a
// *DispatchError. The aggregate keeps all of its events and stays marked.
func (r *Registry) DispatchEventsForAggregate(ctx context.Context, id shared.UniqueEntityID) error {
	r.mu.Lock()
	aggregate, found := r.findMarkedLocked(id)
	r.mu.Unlock()

	if !found {
		return nil
	}
	return r.dispatchAggregate(ctx, aggregate)
}

// DispatchAggregate is DispatchEventsForAggregate for a known instance.
// Two units of work may load the same user into different instances; only
// the first of them is marked, so a unit of work dispatches the instance it
// registered whether or not that instance holds the mark. The mark is
// removed only when it belongs to this instance.
//
// On failure the instance keeps its events and is marked unless another
// instance with the same id already is.
func (r *Registry) DispatchAggregate(ctx context.Context, aggregate shared.Aggregate) error {
	if aggregate == nil {
		return nil
	}
	return r.dispatchAggregate(ctx, aggregate)
}

func (r *Registry) dispatchAggregate(ctx context.Context, aggregate shared.Aggregate) error {
	for _, event := range aggregate.DomainEvents() {
		if err := r.dispatch(ctx, event); err != nil {
			r.log.Error("Domain event dispatch aborted",
				zap.String("aggregate_id", aggregate.ID().String()),
				zap.String("event_kind", event.Kind().String()),
				zap.Error(err),
			)
			r.mu.Lock()
			if _, found := r.findMarkedLocked(aggregate.ID()); !found {
				r.marked = append(r.marked, aggregate)
			}
			pending := len(r.marked)
			r.mu.Unlock()
			r.metrics.PendingAggregates(pending)
			return err
		}
	}

	aggregate.ClearEvents()

	r.mu.Lock()
	r.removeMarkedLocked(aggregate)
	pending := len(r.marked)
	r.mu.Unlock()

	r.metrics.PendingAggregates(pending)
	return nil
}

// dispatch invokes the handlers for event.Kind() in subscription order.
// Handlers run without the lock held so they may mark aggregates or register
// handlers themselves.
func (r *Registry) dispatch(ctx context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	subscribed := r.handlers[event.Kind()]
	handlers := make([]Handler, len(subscribed))
	copy(handlers, subscribed)
	r.mu.Unlock()

	if len(handlers) == 0 {
		return nil
	}

	start := time.Now()
	for i, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			r.metrics.HandlerFailed(event.Kind())
			return &DispatchError{
				Kind:         event.Kind(),
				AggregateID:  event.AggregateID(),
				HandlerIndex: i,
				Err:          err,
			}
		}
	}
	r.metrics.EventDispatched(event.Kind(), len(handlers), time.Since(start))
	return nil
}

// ClearHandlers drops every subscription. Meant for test isolation.
func (r *Registry) ClearHandlers() {
	r.mu.Lock()
	r.handlers = make(map[shared.EventKind][]Handler)
	r.mu.Unlock()
}

// ClearMarkedAggregates forgets every marked aggregate without dispatching.
// Meant for test isolation.
func (r *Registry) ClearMarkedAggregates() {
	r.mu.Lock()
	r.marked = nil
	r.mu.Unlock()
	r.metrics.PendingAggregates(0)
}

// ForgetAggregate unmarks aggregate without dispatching and without touching
// its events. Units of work call it on rollback. A mark held by another
// instance with the same id belongs to another unit of work and is kept.
func (r *Registry) ForgetAggregate(aggregate shared.Aggregate) {
	if aggregate == nil {
		return
	}
	r.mu.Lock()
	r.removeMarkedLocked(aggregate)
	pending := len(r.marked)
	r.mu.Unlock()
	r.metrics.PendingAggregates(pending)
}

// IsMarked reports whether an aggregate with id has pending events registered.
func (r *Registry) IsMarked(id shared.UniqueEntityID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, found := r.findMarkedLocked(id)
	return found
}

// MarkedAggregates returns the marked aggregates in marking order.
func (r *Registry) MarkedAggregates() []shared.Aggregate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.Aggregate, len(r.marked))
	copy(out, r.marked)
	return out
}

// HandlerCount returns how many handlers are subscribed to kind.
func (r *Registry) HandlerCount(kind shared.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers[kind])
}

func (r *Registry) findMarkedLocked(id shared.UniqueEntityID) (shared.Aggregate, bool) {
	for _, aggregate := range r.marked {
		if aggregate.ID().Equals(id) {
			return aggregate, true
		}
	}
	return nil, false
}

// removeMarkedLocked 按实例比较，同 id 的其他实例不受影响
func (r *Registry) removeMarkedLocked(target shared.Aggregate) {
	for i, aggregate := range r.marked {
		if shared.SameAggregate(aggregate, target) {
			r.marked = append(r.marked[:i], r.marked[i+1:]...)
			return
		}
	}
}

var _ shared.Marker = (*Registry)(nil)
