package shared

// Aggregate 聚合根接口
// 聚合根是DDD的核心概念，它是聚合的入口点，维护聚合的一致性边界
// 特性：
// 1. 有全局唯一标识
// 2. 所有修改必须通过聚合根进行
// 3. 记录领域事件，待工作单元提交后统一分发
type Aggregate interface {
	ID() UniqueEntityID
	DomainEvents() []DomainEvent
	ClearEvents()
}

// Marker 由分发注册表提供，在聚合构造时注入。
// 聚合记录事件后调用它，声明"本聚合有待分发的事件"。
type Marker interface {
	MarkAggregateForDispatch(aggregate Aggregate)
}

// MarkerFunc adapts a plain function to Marker.
type MarkerFunc func(aggregate Aggregate)

func (f MarkerFunc) MarkAggregateForDispatch(aggregate Aggregate) { f(aggregate) }

// AggregateRoot is embedded by aggregates to gain event collection.
//
//	type User struct {
//	    shared.AggregateRoot[Props]
//	}
type AggregateRoot[P any] struct {
	Entity[P]
	events []DomainEvent
	marker Marker
}

// NewAggregateRoot creates the embedded root. marker may be nil, in which case
// events are still queued but nobody is told about them.
func NewAggregateRoot[P any](props P, id UniqueEntityID, marker Marker) AggregateRoot[P] {
	return AggregateRoot[P]{
		Entity: NewEntity(props, id),
		marker: marker,
	}
}

// AddDomainEvent appends event and marks the aggregate for dispatch.
// Marking is idempotent on the registry side, so it runs on every add.
func (a *AggregateRoot[P]) AddDomainEvent(event DomainEvent) {
	a.events = append(a.events, event)
	if a.marker != nil {
		a.marker.MarkAggregateForDispatch(a)
	}
}

// DomainEvents returns a copy of the pending events in the order they were raised.
func (a *AggregateRoot[P]) DomainEvents() []DomainEvent {
	events := make([]DomainEvent, len(a.events))
	copy(events, a.events)
	return events
}

// ClearEvents empties the pending queue. It does not touch the registry.
func (a *AggregateRoot[P]) ClearEvents() {
	a.events = nil
}

// rooted 由嵌入 AggregateRoot 的类型自动实现
type rooted interface {
	root() any
}

func (a *AggregateRoot[P]) root() any { return a }

// SameAggregate reports whether a and b are the same in-memory aggregate.
// The registry is marked with the embedded root while repositories and
// units of work hold the outer type, so a plain == does not work.
func SameAggregate(a, b Aggregate) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, okA := a.(rooted)
	rb, okB := b.(rooted)
	if okA && okB {
		return ra.root() == rb.root()
	}
	return a == b
}

var _ Aggregate = (*AggregateRoot[struct{}])(nil)
