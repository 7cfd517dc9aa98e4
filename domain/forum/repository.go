package forum

import (
	"context"

	"ddd-users/domain/shared"
)

type MemberRepository interface {
	ExistsByUserID(ctx context.Context, userID shared.UniqueEntityID) (bool, error)
	FindByUsername(ctx context.Context, username string) (*Member, error)
	Save(ctx context.Context, m *Member) error
}
