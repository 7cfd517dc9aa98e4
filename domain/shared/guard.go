package shared

import (
	"reflect"
	"strings"
)

// GuardArgument 待校验参数
type GuardArgument struct {
	Argument any
	Name     string
}

// GuardResult 校验结果，失败时 Message 为人类可读描述
type GuardResult struct {
	Succeeded bool
	Message   string
}

// AgainstNilOrEmpty fails when argument is nil, an empty string, or a nil pointer.
func AgainstNilOrEmpty(argument any, name string) GuardResult {
	if isNilOrEmpty(argument) {
		return GuardResult{Succeeded: false, Message: name + " is null or undefined"}
	}
	return GuardResult{Succeeded: true}
}

// AgainstNilOrEmptyBulk returns the first failing guard in argument order.
func AgainstNilOrEmptyBulk(args []GuardArgument) GuardResult {
	for _, arg := range args {
		if result := AgainstNilOrEmpty(arg.Argument, arg.Name); !result.Succeeded {
			return result
		}
	}
	return GuardResult{Succeeded: true}
}

// AgainstOutOfRange checks min <= n <= max.
func AgainstOutOfRange(n, min, max int, name string) GuardResult {
	if n < min || n > max {
		return GuardResult{Succeeded: false, Message: name + " is not within range"}
	}
	return GuardResult{Succeeded: true}
}

func isNilOrEmpty(v any) bool {
	if v == nil {
		return true
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return true
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val) == ""
	case interface{ IsZero() bool }:
		return val.IsZero()
	}
	return false
}
