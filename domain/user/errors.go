/*
Package user 定义用户领域错误。
*/
package user

import (
	"errors"

	"ddd-users/domain/shared"
)

var (
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrMissingProps       = errors.New("missing user properties")
	ErrUserDeleted        = errors.New("user is deleted")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrWrongCredentials   = errors.New("username or password incorrect")
	ErrConcurrentModified = errors.New("user was modified by another transaction, please retry")
)

func NewUserNotFoundError(userID string) error {
	return &userDomainError{
		sentinel: shared.ErrNotFound,
		message:  "user not found: " + userID,
		stack:    shared.CaptureStack(3),
	}
}

func NewInvalidEmailError(email string) error {
	return &userDomainError{
		sentinel: ErrInvalidEmail,
		field:    "email",
		message:  "invalid email format: " + email,
		stack:    shared.CaptureStack(3),
	}
}

func NewInvalidUsernameError(name string) error {
	return &userDomainError{
		sentinel: ErrInvalidUsername,
		field:    "username",
		message:  "username must be between 2 and 15 characters: " + name,
		stack:    shared.CaptureStack(3),
	}
}

func NewInvalidPasswordError() error {
	return &userDomainError{
		sentinel: ErrInvalidPassword,
		field:    "password",
		message:  "password must be at least 6 characters",
		stack:    shared.CaptureStack(3),
	}
}

func NewMissingPropsError(reason string) error {
	return &userDomainError{
		sentinel: ErrMissingProps,
		message:  reason,
		stack:    shared.CaptureStack(3),
	}
}

func NewUserDeletedError(userID string) error {
	return &userDomainError{
		sentinel: ErrUserDeleted,
		message:  "user " + userID + " is deleted",
		stack:    shared.CaptureStack(3),
	}
}

func NewEmailAlreadyExistsError(email string) error {
	return &userDomainError{
		sentinel: ErrEmailAlreadyExists,
		field:    "email",
		message:  "the email " + email + " associated for this account already exists",
		stack:    shared.CaptureStack(3),
	}
}

func NewUsernameTakenError(name string) error {
	return &userDomainError{
		sentinel: ErrUsernameTaken,
		field:    "username",
		message:  "the username " + name + " was already taken",
		stack:    shared.CaptureStack(3),
	}
}

func NewConcurrentModificationError(userID string) error {
	return &userDomainError{
		sentinel: ErrConcurrentModified,
		message:  "user " + userID + " was modified by another transaction, please retry",
		stack:    shared.CaptureStack(3),
	}
}

type userDomainError struct {
	sentinel error
	field    string
	message  string
	stack    []uintptr
}

func (e *userDomainError) Error() string   { return e.message }
func (e *userDomainError) Unwrap() error   { return e.sentinel }
func (e *userDomainError) Field() string   { return e.field }
func (e *userDomainError) Stack() []string { return shared.FormatStack(e.stack) }
