package shared

import (
	"errors"
	"time"
)

// EventKind 领域事件类型标识
// 由事件构造函数显式设置，用于处理器路由，不通过反射推断。
type EventKind string

func (k EventKind) String() string { return string(k) }

type DomainEvent interface {
	Kind() EventKind
	AggregateID() UniqueEntityID
	OccurredAt() time.Time
}

// EventBase carries the fields every domain event shares.
// Concrete events embed it and add their own payload.
type EventBase struct {
	kind        EventKind
	aggregateID UniqueEntityID
	occurredAt  time.Time
}

func NewEventBase(kind EventKind, aggregateID UniqueEntityID) EventBase {
	return EventBase{
		kind:        kind,
		aggregateID: aggregateID,
		occurredAt:  time.Now(),
	}
}

func (e EventBase) Kind() EventKind             { return e.kind }
func (e EventBase) AggregateID() UniqueEntityID { return e.aggregateID }
func (e EventBase) OccurredAt() time.Time       { return e.occurredAt }

func ValidateEvent(event DomainEvent) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	if event.Kind() == "" {
		return errors.New("event kind cannot be empty")
	}
	if event.AggregateID().IsZero() {
		return errors.New("aggregate ID cannot be empty")
	}
	if event.OccurredAt().IsZero() {
		return errors.New("occurred at time cannot be zero")
	}
	return nil
}
