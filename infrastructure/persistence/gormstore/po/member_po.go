package po

import (
	"time"

	"ddd-users/domain/forum"
	"ddd-users/domain/shared"
)

type MemberPO struct {
	ID         string    `gorm:"primaryKey;size:64"`
	UserID     string    `gorm:"size:64;uniqueIndex:idx_members_user_id;not null"`
	Username   string    `gorm:"size:32;index;not null"`
	Reputation int       `gorm:"default:0"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (MemberPO) TableName() string {
	return "members"
}

func (p *MemberPO) AggregateID() string { return p.ID }

func FromMemberDomain(m *forum.Member) *MemberPO {
	return &MemberPO{
		ID:         m.ID().String(),
		UserID:     m.UserID().String(),
		Username:   m.Username(),
		Reputation: m.Reputation(),
	}
}

func (p *MemberPO) ToDomain(marker shared.Marker) *forum.Member {
	return forum.RebuildMember(forum.MemberProps{
		UserID:     shared.IDFromString(p.UserID),
		Username:   p.Username,
		Reputation: p.Reputation,
	}, shared.IDFromString(p.ID), marker)
}
