// Package events holds the domain-event dispatch registry.
//
// Aggregates record events while a unit of work runs and mark themselves on the
// registry through the shared.Marker they were built with. Once the
// persistence layer has committed, it calls DispatchEventsForAggregate with the
// aggregate's id; every pending event is handed to the handlers registered for
// its kind, in the order the events were raised and the handlers subscribed.
//
// Only one instance per id is marked. A unit of work that loaded its own copy
// of an aggregate dispatches and forgets that copy with DispatchAggregate and
// ForgetAggregate, which never disturb a mark held by another instance.
//
// Dispatch is fail-fast: the first handler error stops dispatch for that
// aggregate, leaving its events queued and the aggregate still marked. Nothing
// is retried or rolled back.
package events
