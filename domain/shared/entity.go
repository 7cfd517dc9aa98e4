package shared

// Entity 实体基类
// 实体与值对象的区别：
// 1. 实体有唯一标识（ID）
// 2. 通过标识判断相等性（即使属性相同，ID不同就是不同的实体）
// 3. 创建后不可重新分配标识
type Entity[P any] struct {
	id    UniqueEntityID
	Props P
}

// NewEntity binds props to id. A zero id is replaced with a generated one.
func NewEntity[P any](props P, id UniqueEntityID) Entity[P] {
	if id.IsZero() {
		id = NewUniqueEntityID()
	}
	return Entity[P]{id: id, Props: props}
}

func (e *Entity[P]) ID() UniqueEntityID { return e.id }

// Equals compares identifiers only; props are ignored.
func (e *Entity[P]) Equals(other *Entity[P]) bool {
	if e == nil || other == nil {
		return false
	}
	if e == other {
		return true
	}
	return e.id.Equals(other.id)
}
