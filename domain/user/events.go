package user

import (
	"time"

	"ddd-users/domain/shared"
)

const (
	KindUserCreated   shared.EventKind = "UserCreated"
	KindUserDeleted   shared.EventKind = "UserDeleted"
	KindUserLoggedIn  shared.EventKind = "UserLoggedIn"
	KindEmailVerified shared.EventKind = "EmailVerified"
)

// UserCreated is raised when a brand new user is built (not on rehydration).
type UserCreated struct {
	shared.EventBase
	Username string
	Email    string
}

func NewUserCreated(u *User) *UserCreated {
	return &UserCreated{
		EventBase: shared.NewEventBase(KindUserCreated, u.ID()),
		Username:  u.Username().Value(),
		Email:     u.Email().Value(),
	}
}

type UserDeleted struct {
	shared.EventBase
}

func NewUserDeleted(u *User) *UserDeleted {
	return &UserDeleted{EventBase: shared.NewEventBase(KindUserDeleted, u.ID())}
}

type UserLoggedIn struct {
	shared.EventBase
	LoggedInAt time.Time
}

func NewUserLoggedIn(u *User) *UserLoggedIn {
	return &UserLoggedIn{
		EventBase:  shared.NewEventBase(KindUserLoggedIn, u.ID()),
		LoggedInAt: u.LastLogin(),
	}
}

type EmailVerified struct {
	shared.EventBase
	Email string
}

func NewEmailVerified(u *User) *EmailVerified {
	return &EmailVerified{
		EventBase: shared.NewEventBase(KindEmailVerified, u.ID()),
		Email:     u.Email().Value(),
	}
}
