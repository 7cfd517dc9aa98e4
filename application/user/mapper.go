package user

import "ddd-users/domain/user"

func toUserResponse(u *user.User) *UserResponse {
	resp := &UserResponse{
		ID:              u.ID().String(),
		Email:           u.Email().Value(),
		Username:        u.Username().Value(),
		IsEmailVerified: u.IsEmailVerified(),
		IsAdminUser:     u.IsAdminUser(),
		IsDeleted:       u.IsDeleted(),
	}
	if last := u.LastLogin(); !last.IsZero() {
		resp.LastLogin = &last
	}
	return resp
}
