package user

import "time"

// CreateUserRequest 表示注册用户的入参。
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest 表示登录入参。
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 表示登录返回的令牌对。
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UserResponse 表示用户返回模型，不包含密码与令牌。
type UserResponse struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Username        string     `json:"username"`
	IsEmailVerified bool       `json:"is_email_verified"`
	IsAdminUser     bool       `json:"is_admin_user"`
	IsDeleted       bool       `json:"is_deleted"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
}
