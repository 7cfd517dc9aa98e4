package forum

import (
	"context"

	"ddd-users/domain/forum"
)

// MemberResponse 论坛成员返回模型
type MemberResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Reputation int    `json:"reputation"`
}

type MemberService struct {
	members forum.MemberRepository
}

func NewMemberService(members forum.MemberRepository) *MemberService {
	return &MemberService{members: members}
}

func (s *MemberService) GetMemberByUsername(ctx context.Context, username string) (*MemberResponse, error) {
	m, err := s.members.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return &MemberResponse{
		ID:         m.ID().String(),
		UserID:     m.UserID().String(),
		Username:   m.Username(),
		Reputation: m.Reputation(),
	}, nil
}
