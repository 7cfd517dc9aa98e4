/*
Package forum 论坛子域

Member 是论坛里的用户身份。它不由用户直接创建，而是在用户子域
发布 UserCreated 事件后，由订阅方在论坛子域中生成。
*/
package forum

import (
	"errors"

	"ddd-users/domain/shared"
)

const KindMemberCreated shared.EventKind = "MemberCreated"

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrMemberExists   = errors.New("member already exists for user")
)

type MemberProps struct {
	UserID     shared.UniqueEntityID
	Username   string
	Reputation int
}

// Member 论坛成员聚合根
type Member struct {
	shared.AggregateRoot[MemberProps]
}

type MemberCreated struct {
	shared.EventBase
	UserID shared.UniqueEntityID
}

// NewMember creates a member for userID and raises MemberCreated.
func NewMember(userID shared.UniqueEntityID, username string, marker shared.Marker) (*Member, error) {
	result := shared.AgainstNilOrEmptyBulk([]shared.GuardArgument{
		{Argument: userID, Name: "userId"},
		{Argument: username, Name: "username"},
	})
	if !result.Succeeded {
		return nil, shared.NewValidationError("member", "", result.Message)
	}

	m := &Member{AggregateRoot: shared.NewAggregateRoot(MemberProps{
		UserID:   userID,
		Username: username,
	}, shared.NewUniqueEntityID(), marker)}
	m.AddDomainEvent(&MemberCreated{
		EventBase: shared.NewEventBase(KindMemberCreated, m.ID()),
		UserID:    userID,
	})
	return m, nil
}

// RebuildMember 仅供仓储实现使用
func RebuildMember(props MemberProps, id shared.UniqueEntityID, marker shared.Marker) *Member {
	return &Member{AggregateRoot: shared.NewAggregateRoot(props, id, marker)}
}

func (m *Member) UserID() shared.UniqueEntityID { return m.Props.UserID }
func (m *Member) Username() string              { return m.Props.Username }
func (m *Member) Reputation() int               { return m.Props.Reputation }
