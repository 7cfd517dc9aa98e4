package forum

import (
	"ddd-users/domain/shared"
	"ddd-users/domain/user"
)

func fakeUserCreated(userID shared.UniqueEntityID, username string) *user.UserCreated {
	return &user.UserCreated{
		EventBase: shared.NewEventBase(user.KindUserCreated, userID),
		Username:  username,
	}
}
