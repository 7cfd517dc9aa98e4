package forum

import (
	"context"
	"testing"
	"time"

	appuser "ddd-users/application/user"
	"ddd-users/config"
	"ddd-users/domain/events"
	"ddd-users/domain/forum"
	"ddd-users/domain/shared"
	"ddd-users/infrastructure/auth"
	"ddd-users/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberCreatedAfterUserCreated(t *testing.T) {
	registry := events.NewRegistry()
	uow := memory.NewUnitOfWork(registry)
	users := memory.NewUserRepository(registry.Marker(), registry)
	members := memory.NewMemberRepository(registry.Marker(), registry)

	NewAfterUserCreated(members, uow, registry.Marker()).Subscribe(registry)
	var memberEvents int
	registry.RegisterFunc(forum.KindMemberCreated, func(context.Context, shared.DomainEvent) error {
		memberEvents++
		return nil
	})

	tokens := auth.NewTokenIssuer(config.AuthConfig{Secret: "s", Issuer: "i", AccessTokenTTL: time.Minute})
	svc := appuser.NewService(users, uow, tokens, registry.Marker())

	created, err := svc.CreateUser(context.Background(), appuser.CreateUserRequest{
		Email: "khalil@apollographql.com", Username: "khalil", Password: "secret123",
	})
	require.NoError(t, err)

	member, err := NewMemberService(members).GetMemberByUsername(context.Background(), "khalil")
	require.NoError(t, err)
	assert.Equal(t, created.ID, member.UserID)
	assert.Equal(t, 1, memberEvents)
	assert.Empty(t, registry.MarkedAggregates())
}

func TestAfterUserCreatedIsIdempotent(t *testing.T) {
	registry := events.NewRegistry()
	uow := memory.NewUnitOfWork(registry)
	members := memory.NewMemberRepository(registry.Marker(), registry)
	handler := NewAfterUserCreated(members, uow, registry.Marker())

	userID := shared.NewUniqueEntityID()
	existing, err := forum.NewMember(userID, "khalil", nil)
	require.NoError(t, err)
	require.NoError(t, members.Save(context.Background(), existing))

	event := fakeUserCreated(userID, "khalil")
	require.NoError(t, handler.Handle(context.Background(), event))

	_, err = members.FindByUsername(context.Background(), "khalil")
	require.NoError(t, err)
	assert.Empty(t, registry.MarkedAggregates(), "no second member was created")
}

func TestAfterUserCreatedRejectsOtherEvents(t *testing.T) {
	registry := events.NewRegistry()
	handler := NewAfterUserCreated(memory.NewMemberRepository(nil, nil), memory.NewUnitOfWork(registry), nil)
	err := handler.Handle(context.Background(), shared.NewEventBase("Other", shared.NewUniqueEntityID()))
	assert.Error(t, err)
}
