package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ddd-users/domain/shared"
)

// Dispatcher is the part of the event registry a unit of work needs.
// Units of work address the instances they registered; the id form is
// left for the post-commit hook when it has nothing better.
type Dispatcher interface {
	DispatchEventsForAggregate(ctx context.Context, id shared.UniqueEntityID) error
	DispatchAggregate(ctx context.Context, aggregate shared.Aggregate) error
	ForgetAggregate(aggregate shared.Aggregate)
}

// Session collects the aggregates registered during one unit of work.
type Session struct {
	mu         sync.Mutex
	aggregates []shared.Aggregate
}

func NewSession() *Session {
	return &Session{}
}

// Register adds aggregate once, keeping registration order. Two instances
// with the same id are both kept: each carries its own events.
func (s *Session) Register(aggregate shared.Aggregate) {
	if aggregate == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.aggregates {
		if shared.SameAggregate(existing, aggregate) {
			return
		}
	}
	s.aggregates = append(s.aggregates, aggregate)
}

func (s *Session) Aggregates() []shared.Aggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]shared.Aggregate, len(s.aggregates))
	copy(out, s.aggregates)
	return out
}

// Contains reports whether this very instance was registered.
func (s *Session) Contains(aggregate shared.Aggregate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.aggregates {
		if shared.SameAggregate(existing, aggregate) {
			return true
		}
	}
	return false
}

type sessionKey struct{}

func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns nil outside a unit of work.
func SessionFromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey{}).(*Session); ok {
		return s
	}
	return nil
}

// WithoutUnitOfWork strips the transaction and session from ctx while
// keeping deadlines, cancellation and the request id. Post-commit
// dispatch runs with it so handlers start units of work of their own.
func WithoutUnitOfWork(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, txKey{}, nil)
	ctx = context.WithValue(ctx, aggregateKey{}, nil)
	return context.WithValue(ctx, sessionKey{}, nil)
}

// DispatchRegistered dispatches each aggregate in registration order. A
// failing aggregate does not stop the others; all failures are joined.
func DispatchRegistered(ctx context.Context, dispatcher Dispatcher, aggregates []shared.Aggregate) error {
	var errs []error
	for _, aggregate := range aggregates {
		if err := dispatcher.DispatchAggregate(ctx, aggregate); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("dispatch after commit: %w", errors.Join(errs...))
	}
	return nil
}
