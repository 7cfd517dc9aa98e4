/*
Package user 用户应用服务

编排用户用例：构造值对象、在工作单元中读写仓储并登记聚合。
领域事件由工作单元在提交后分发，应用服务本身不触发分发。
*/
package user

import (
	"context"
	"errors"

	"ddd-users/domain/shared"
	"ddd-users/domain/user"
)

// TokenIssuer signs the token pair handed out at login.
type TokenIssuer interface {
	Issue(u *user.User) (user.JWTToken, user.RefreshToken, error)
}

type Service struct {
	users  user.Repository
	uow    shared.UnitOfWork
	tokens TokenIssuer
	marker shared.Marker
}

// NewService marker is given to newly created users, normally the event
// registry.
func NewService(users user.Repository, uow shared.UnitOfWork, tokens TokenIssuer, marker shared.Marker) *Service {
	return &Service{users: users, uow: uow, tokens: tokens, marker: marker}
}

// CreateUser 注册用户
// 所有值对象错误会一起返回，便于客户端一次性提示
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	email, emailErr := user.NewEmail(req.Email)
	username, usernameErr := user.NewUsername(req.Username)
	password, passwordErr := user.NewPassword(req.Password)
	if err := errors.Join(emailErr, usernameErr, passwordErr); err != nil {
		return nil, err
	}

	hashed, err := password.Hash()
	if err != nil {
		return nil, err
	}

	var u *user.User
	err = s.uow.Execute(ctx, func(ctx context.Context) error {
		exists, err := s.users.Exists(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return user.NewEmailAlreadyExistsError(email.Value())
		}

		if _, err := s.users.FindByUsername(ctx, username); err == nil {
			return user.NewUsernameTakenError(username.Value())
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		u, err = user.New(user.Props{
			Email:    email,
			Username: username,
			Password: hashed,
		}, s.marker)
		if err != nil {
			return err
		}

		// 先登记：保存失败时工作单元会撤销标记
		s.uow.Register(ctx, u)
		return s.users.Save(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return toUserResponse(u), nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (*UserResponse, error) {
	u, err := s.findByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserResponse(u), nil
}

func (s *Service) GetUserByUsername(ctx context.Context, name string) (*UserResponse, error) {
	username, err := user.NewUsername(name)
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return toUserResponse(u), nil
}

// DeleteUser 逻辑删除，重复删除不报错
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	return s.modify(ctx, userID, func(u *user.User) error {
		u.Delete()
		return nil
	})
}

func (s *Service) VerifyEmail(ctx context.Context, userID string) (*UserResponse, error) {
	var out *UserResponse
	err := s.modify(ctx, userID, func(u *user.User) error {
		if u.IsDeleted() {
			return user.NewUserDeletedError(userID)
		}
		u.VerifyEmail()
		out = toUserResponse(u)
		return nil
	})
	return out, err
}

// Login 校验密码并签发令牌
// 用户不存在、已删除或密码错误都返回同一个错误
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	username, err := user.NewUsername(req.Username)
	if err != nil {
		return nil, user.ErrWrongCredentials
	}

	var resp *LoginResponse
	err = s.uow.Execute(ctx, func(ctx context.Context) error {
		u, err := s.users.FindByUsername(ctx, username)
		if errors.Is(err, shared.ErrNotFound) {
			return user.ErrWrongCredentials
		}
		if err != nil {
			return err
		}
		if u.IsDeleted() {
			return user.ErrWrongCredentials
		}

		ok, err := u.Password().ComparePassword(req.Password)
		if err != nil {
			return err
		}
		if !ok {
			return user.ErrWrongCredentials
		}

		access, refresh, err := s.tokens.Issue(u)
		if err != nil {
			return err
		}
		if err := u.SetAccessToken(access, refresh); err != nil {
			return err
		}
		s.uow.Register(ctx, u)
		if err := s.users.Save(ctx, u); err != nil {
			return err
		}

		resp = &LoginResponse{AccessToken: string(access), RefreshToken: string(refresh)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) modify(ctx context.Context, userID string, change func(u *user.User) error) error {
	return s.uow.Execute(ctx, func(ctx context.Context) error {
		u, err := s.findByID(ctx, userID)
		if err != nil {
			return err
		}
		s.uow.Register(ctx, u)
		if err := change(u); err != nil {
			return err
		}
		return s.users.Save(ctx, u)
	})
}

func (s *Service) findByID(ctx context.Context, userID string) (*user.User, error) {
	if userID == "" {
		return nil, shared.NewValidationError("user", "id", "user id is required")
	}
	return s.users.FindByID(ctx, shared.IDFromString(userID))
}
