package gormstore

import (
	"context"
	"errors"
	"strings"

	"ddd-users/domain/shared"
	"ddd-users/domain/user"
	"ddd-users/infrastructure/persistence"
	"ddd-users/infrastructure/persistence/gormstore/po"

	"gorm.io/gorm"
)

type UserRepository struct {
	db     *gorm.DB
	marker shared.Marker
}

// NewUserRepository marker is handed to every rebuilt user so that behaviour
// called on a loaded user marks it for dispatch.
func NewUserRepository(db *gorm.DB, marker shared.Marker) *UserRepository {
	return &UserRepository{db: db, marker: marker}
}

// getDB returns the unit of work's transaction when ctx carries one. The
// transaction is re-bound to ctx so the post-commit hook can tell it apart.
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Duplicate entry") ||
		strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key value")
}

// duplicateUserError 按冲突的索引区分用户名和邮箱。
// MySQL 的消息里带有冲突的值，只看 "for key" 之后的索引名
func duplicateUserError(err error, p *po.UserPO) error {
	msg := err.Error()
	if i := strings.LastIndex(msg, "for key "); i >= 0 {
		msg = msg[i:]
	}
	if strings.Contains(msg, "idx_users_username") || strings.Contains(msg, "users.username") {
		return user.NewUsernameTakenError(p.Username)
	}
	return user.NewEmailAlreadyExistsError(p.Email)
}

func (r *UserRepository) Exists(ctx context.Context, email user.Email) (bool, error) {
	var count int64
	if err := getDB(ctx, r.db).Model(&po.UserPO{}).Where("email = ?", email.Value()).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id shared.UniqueEntityID) (*user.User, error) {
	return r.findOne(ctx, id.String(), "id = ?", id.String())
}

func (r *UserRepository) FindByEmail(ctx context.Context, email user.Email) (*user.User, error) {
	return r.findOne(ctx, email.Value(), "email = ?", email.Value())
}

func (r *UserRepository) FindByUsername(ctx context.Context, username user.Username) (*user.User, error) {
	return r.findOne(ctx, username.Value(), "username = ?", username.Value())
}

func (r *UserRepository) findOne(ctx context.Context, key string, query string, args ...any) (*user.User, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var userPO po.UserPO
	if err := getDB(ctx, r.db).Where(query, args...).First(&userPO).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.NewUserNotFoundError(key)
		}
		return nil, err
	}
	return userPO.ToDomain(r.marker)
}

// Save inserts new users and updates existing ones under an optimistic
// version check. It never opens a transaction of its own: outside a unit of
// work GORM's per-statement transaction commits first and the hook dispatches.
func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	ctx = persistence.ContextWithAggregate(ctx, u)
	db := getDB(ctx, r.db)
	userPO := po.FromUserDomain(u)

	if u.IsNew() {
		userPO.Version = 1
		if err := db.Create(userPO).Error; err != nil {
			if isDuplicateKeyError(err) {
				return duplicateUserError(err, userPO)
			}
			return err
		}
		u.IncrementVersion()
		return nil
	}

	expectedVersion := u.Version()
	result := db.Model(userPO).
		Where("version = ?", expectedVersion).
		Updates(map[string]interface{}{
			"email":             userPO.Email,
			"username":          userPO.Username,
			"password":          userPO.Password,
			"is_email_verified": userPO.IsEmailVerified,
			"is_admin_user":     userPO.IsAdminUser,
			"access_token":      userPO.AccessToken,
			"refresh_token":     userPO.RefreshToken,
			"is_deleted":        userPO.IsDeleted,
			"last_login":        userPO.LastLogin,
			"version":           expectedVersion + 1,
		})
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return duplicateUserError(result.Error, userPO)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := getDB(ctx, r.db).Model(&po.UserPO{}).Where("id = ?", userPO.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return user.NewUserNotFoundError(userPO.ID)
		}
		return user.NewConcurrentModificationError(userPO.ID)
	}

	u.IncrementVersion()
	return nil
}

var _ user.Repository = (*UserRepository)(nil)
