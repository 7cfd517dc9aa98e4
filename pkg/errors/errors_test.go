package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"ddd-users/domain/events"
	"ddd-users/domain/forum"
	"ddd-users/domain/shared"
	"ddd-users/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDomainError(t *testing.T) {
	dispatchErr := &events.DispatchError{
		Kind:        user.KindUserCreated,
		AggregateID: shared.NewUniqueEntityID(),
		Err:         errors.New("boom"),
	}

	tests := []struct {
		name   string
		err    error
		code   ErrorCode
		status int
	}{
		{"email exists", user.NewEmailAlreadyExistsError("a@b.co"), CodeEmailExists, http.StatusConflict},
		{"username taken", user.NewUsernameTakenError("khalil"), CodeUsernameTaken, http.StatusConflict},
		{"wrong credentials", user.ErrWrongCredentials, CodeWrongCredentials, http.StatusUnauthorized},
		{"invalid email", user.NewInvalidEmailError("notvalid"), CodeValidation, http.StatusBadRequest},
		{"user not found", user.NewUserNotFoundError("1"), CodeNotFound, http.StatusNotFound},
		{"member not found", fmt.Errorf("lookup: %w", forum.ErrMemberNotFound), CodeMemberNotFound, http.StatusNotFound},
		{"deleted", user.NewUserDeletedError("1"), CodeUserDeleted, http.StatusGone},
		{"dispatch", fmt.Errorf("after commit: %w", dispatchErr), CodeDispatchFailed, http.StatusInternalServerError},
		{"unknown", context.DeadlineExceeded, CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromDomainError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.status, appErr.HTTPStatusCode())
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestFromDomainErrorKeepsAppError(t *testing.T) {
	original := BadRequest("nope")
	assert.Same(t, original, FromDomainError(fmt.Errorf("wrapped: %w", original)))
	assert.Nil(t, FromDomainError(nil))
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", New(CodeUserNotFound, "user not found"))
	assert.True(t, Is(err, CodeUserNotFound))
	assert.False(t, Is(err, CodeConflict))
	assert.False(t, Is(errors.New("plain"), CodeInternal))
}
