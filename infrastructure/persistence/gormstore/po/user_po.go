package po

import (
	"time"

	"ddd-users/domain/shared"
	"ddd-users/domain/user"
)

type UserPO struct {
	ID              string `gorm:"primaryKey;size:64"`
	Email           string `gorm:"size:255;uniqueIndex:idx_users_email;not null"`
	Username        string `gorm:"size:32;uniqueIndex:idx_users_username;not null"`
	Password        string `gorm:"size:255;not null"`
	IsEmailVerified bool   `gorm:"default:false"`
	IsAdminUser     bool   `gorm:"default:false"`
	AccessToken     string `gorm:"type:text"`
	RefreshToken    string `gorm:"type:text"`
	IsDeleted       bool   `gorm:"default:false;index"`
	LastLogin       *time.Time
	Version         int       `gorm:"default:0"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (UserPO) TableName() string {
	return "users"
}

// AggregateID lets the post-commit hook find the user in the registry.
func (p *UserPO) AggregateID() string { return p.ID }

// FromUserDomain expects an already hashed password.
func FromUserDomain(u *user.User) *UserPO {
	p := &UserPO{
		ID:              u.ID().String(),
		Email:           u.Email().Value(),
		Username:        u.Username().Value(),
		Password:        u.Password().Value(),
		IsEmailVerified: u.IsEmailVerified(),
		IsAdminUser:     u.IsAdminUser(),
		AccessToken:     string(u.AccessToken()),
		RefreshToken:    string(u.RefreshToken()),
		IsDeleted:       u.IsDeleted(),
		Version:         u.Version(),
	}
	if last := u.LastLogin(); !last.IsZero() {
		p.LastLogin = &last
	}
	return p
}

func (p *UserPO) ToDomain(marker shared.Marker) (*user.User, error) {
	email, err := user.NewEmail(p.Email)
	if err != nil {
		return nil, err
	}
	username, err := user.NewUsername(p.Username)
	if err != nil {
		return nil, err
	}

	props := user.Props{
		Email:           email,
		Username:        username,
		Password:        user.PasswordFromHash(p.Password),
		IsEmailVerified: p.IsEmailVerified,
		IsAdminUser:     p.IsAdminUser,
		AccessToken:     user.JWTToken(p.AccessToken),
		RefreshToken:    user.RefreshToken(p.RefreshToken),
		IsDeleted:       p.IsDeleted,
	}
	if p.LastLogin != nil {
		props.LastLogin = *p.LastLogin
	}
	return user.Rebuild(props, shared.IDFromString(p.ID), p.Version, marker)
}
