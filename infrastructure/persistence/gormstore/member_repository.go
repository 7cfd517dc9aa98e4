package gormstore

import (
	"context"
	"errors"

	"ddd-users/domain/forum"
	"ddd-users/domain/shared"
	"ddd-users/infrastructure/persistence"
	"ddd-users/infrastructure/persistence/gormstore/po"

	"gorm.io/gorm"
)

type MemberRepository struct {
	db     *gorm.DB
	marker shared.Marker
}

func NewMemberRepository(db *gorm.DB, marker shared.Marker) *MemberRepository {
	return &MemberRepository{db: db, marker: marker}
}

func (r *MemberRepository) ExistsByUserID(ctx context.Context, userID shared.UniqueEntityID) (bool, error) {
	var count int64
	err := getDB(ctx, r.db).Model(&po.MemberPO{}).Where("user_id = ?", userID.String()).Count(&count).Error
	return count > 0, err
}

func (r *MemberRepository) FindByUsername(ctx context.Context, username string) (*forum.Member, error) {
	var memberPO po.MemberPO
	if err := getDB(ctx, r.db).Where("username = ?", username).First(&memberPO).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, forum.ErrMemberNotFound
		}
		return nil, err
	}
	return memberPO.ToDomain(r.marker), nil
}

func (r *MemberRepository) Save(ctx context.Context, m *forum.Member) error {
	ctx = persistence.ContextWithAggregate(ctx, m)
	db := getDB(ctx, r.db)
	memberPO := po.FromMemberDomain(m)

	var count int64
	if err := db.Model(&po.MemberPO{}).Where("id = ?", memberPO.ID).Count(&count).Error; err != nil {
		return err
	}

	if count == 0 {
		if err := db.Create(memberPO).Error; err != nil {
			if isDuplicateKeyError(err) {
				return forum.ErrMemberExists
			}
			return err
		}
		return nil
	}

	return db.Model(memberPO).Updates(map[string]interface{}{
		"username":   memberPO.Username,
		"reputation": memberPO.Reputation,
	}).Error
}

var _ forum.MemberRepository = (*MemberRepository)(nil)
