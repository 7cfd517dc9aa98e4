package errors

import (
	"errors"
	"fmt"
	"net/http"

	"ddd-users/domain/events"
	"ddd-users/domain/forum"
	"ddd-users/domain/shared"
	"ddd-users/domain/user"
)

// ErrorCode 错误码
type ErrorCode string

const (
	// 通用错误码
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeForbidden      ErrorCode = "FORBIDDEN"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeConflict       ErrorCode = "CONFLICT"
	CodeTooManyRequest ErrorCode = "TOO_MANY_REQUESTS"
	CodeValidation     ErrorCode = "VALIDATION_ERROR"

	// 业务错误码
	CodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	CodeUserDeleted        ErrorCode = "USER_DELETED"
	CodeEmailExists        ErrorCode = "EMAIL_EXISTS"
	CodeUsernameTaken      ErrorCode = "USERNAME_TAKEN"
	CodeWrongCredentials   ErrorCode = "WRONG_CREDENTIALS"
	CodeMemberNotFound     ErrorCode = "MEMBER_NOT_FOUND"
	CodeConcurrentModified ErrorCode = "CONCURRENT_MODIFICATION"
	CodeDispatchFailed     ErrorCode = "EVENT_DISPATCH_FAILED"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode 返回对应的HTTP状态码
func (e *AppError) HTTPStatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeWrongCredentials:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeUserNotFound, CodeMemberNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeEmailExists, CodeUsernameTaken, CodeConcurrentModified:
		return http.StatusConflict
	case CodeTooManyRequest:
		return http.StatusTooManyRequests
	case CodeUserDeleted:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// New 创建新错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// 常用错误构造函数

func BadRequest(message string) *AppError      { return New(CodeBadRequest, message) }
func NotFound(message string) *AppError        { return New(CodeNotFound, message) }
func Internal(message string) *AppError        { return New(CodeInternal, message) }
func Unauthorized(message string) *AppError    { return New(CodeUnauthorized, message) }
func Forbidden(message string) *AppError       { return New(CodeForbidden, message) }
func Conflict(message string) *AppError        { return New(CodeConflict, message) }
func TooManyRequests(message string) *AppError { return New(CodeTooManyRequest, message) }
func Validation(message string) *AppError      { return New(CodeValidation, message) }

// Is 检查是否为特定错误码
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// FromDomainError 将领域错误映射为应用错误
// 按哨兵错误判断，具体错误在前，通用错误在后
func FromDomainError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	msg := err.Error()
	var dispatchErr *events.DispatchError

	switch {
	case errors.Is(err, user.ErrEmailAlreadyExists):
		return Wrap(err, CodeEmailExists, msg)
	case errors.Is(err, user.ErrUsernameTaken):
		return Wrap(err, CodeUsernameTaken, msg)
	case errors.Is(err, user.ErrWrongCredentials):
		return Wrap(err, CodeWrongCredentials, msg)
	case errors.Is(err, user.ErrUserDeleted):
		return Wrap(err, CodeUserDeleted, msg)
	case errors.Is(err, user.ErrConcurrentModified):
		return Wrap(err, CodeConcurrentModified, msg)
	case errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrInvalidUsername),
		errors.Is(err, user.ErrInvalidPassword),
		errors.Is(err, user.ErrMissingProps),
		errors.Is(err, shared.ErrInvalidInput):
		return Wrap(err, CodeValidation, msg)
	case errors.Is(err, forum.ErrMemberNotFound):
		return Wrap(err, CodeMemberNotFound, msg)
	case errors.Is(err, shared.ErrNotFound):
		return Wrap(err, CodeNotFound, msg)
	case errors.Is(err, forum.ErrMemberExists), errors.Is(err, shared.ErrConflict):
		return Wrap(err, CodeConflict, msg)
	case errors.Is(err, shared.ErrForbidden):
		return Wrap(err, CodeForbidden, msg)
	case errors.As(err, &dispatchErr):
		// 事务已提交，分发失败不影响已保存的数据
		return Wrap(err, CodeDispatchFailed, "saved, but a subscriber failed: "+dispatchErr.Kind.String())
	default:
		return Wrap(err, CodeInternal, "internal server error")
	}
}
