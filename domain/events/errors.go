package events

import (
	"fmt"

	"ddd-users/domain/shared"
)

// DispatchError reports the handler that stopped dispatch for an aggregate.
type DispatchError struct {
	Kind         shared.EventKind
	AggregateID  shared.UniqueEntityID
	HandlerIndex int
	Err          error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s for aggregate %s: handler #%d: %v",
		e.Kind, e.AggregateID, e.HandlerIndex, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
