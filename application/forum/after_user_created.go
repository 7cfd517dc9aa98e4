/*
Package forum 论坛应用服务

AfterUserCreated 订阅用户子域的 UserCreated 事件，为新用户创建论坛成员。
*/
package forum

import (
	"context"
	"fmt"

	"ddd-users/domain/events"
	"ddd-users/domain/forum"
	"ddd-users/domain/shared"
	"ddd-users/domain/user"
	"ddd-users/pkg/logger"

	"go.uber.org/zap"
)

type AfterUserCreated struct {
	members forum.MemberRepository
	uow     shared.UnitOfWork
	marker  shared.Marker
}

func NewAfterUserCreated(members forum.MemberRepository, uow shared.UnitOfWork, marker shared.Marker) *AfterUserCreated {
	return &AfterUserCreated{members: members, uow: uow, marker: marker}
}

func (h *AfterUserCreated) Subscribe(registry *events.Registry) {
	registry.Register(user.KindUserCreated, h)
}

// Handle creates the member in its own unit of work. A user that already
// has a member is skipped, so redelivery is harmless.
func (h *AfterUserCreated) Handle(ctx context.Context, event shared.DomainEvent) error {
	created, ok := event.(*user.UserCreated)
	if !ok {
		return fmt.Errorf("forum: unexpected event %T for %s", event, event.Kind())
	}
	log := logger.FromContext(ctx).With(zap.String("user_id", created.AggregateID().String()))

	return h.uow.Execute(ctx, func(ctx context.Context) error {
		exists, err := h.members.ExistsByUserID(ctx, created.AggregateID())
		if err != nil {
			return err
		}
		if exists {
			log.Info("Member already exists for user, skipping")
			return nil
		}

		m, err := forum.NewMember(created.AggregateID(), created.Username, h.marker)
		if err != nil {
			return err
		}
		h.uow.Register(ctx, m)
		if err := h.members.Save(ctx, m); err != nil {
			return err
		}

		log.Info("Member created", zap.String("member_id", m.ID().String()))
		return nil
	})
}

var _ events.Handler = (*AfterUserCreated)(nil)
