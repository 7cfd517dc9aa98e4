package shared

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// UniqueEntityID 实体唯一标识
// 包装一个字符串或整数值，按值判断相等性。
// 零值表示"未分配"，可用 IsZero 判断。
type UniqueEntityID struct {
	value any // string | int64
}

// NewUniqueEntityID 生成新的 UUID v4 标识
func NewUniqueEntityID() UniqueEntityID {
	return UniqueEntityID{value: uuid.New().String()}
}

// IDFromString wraps an existing string identifier.
// An empty string yields a freshly generated id.
func IDFromString(s string) UniqueEntityID {
	if s == "" {
		return NewUniqueEntityID()
	}
	return UniqueEntityID{value: s}
}

// IDFromInt wraps a numeric identifier (e.g. an auto-increment key).
func IDFromInt(n int64) UniqueEntityID {
	return UniqueEntityID{value: n}
}

func (id UniqueEntityID) Value() any { return id.value }

func (id UniqueEntityID) IsZero() bool { return id.value == nil }

// Equals 按值比较，"1" 与 1 不相等
func (id UniqueEntityID) Equals(other UniqueEntityID) bool {
	if id.IsZero() || other.IsZero() {
		return false
	}
	return id.value == other.value
}

func (id UniqueEntityID) String() string {
	switch v := id.value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}
