package dto

import "time"

// SignUpRequest 注册请求，支持表单和 JSON。
type SignUpRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// SignInRequest 登录请求。
type SignInRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// ResetPasswordRequest 发送重置密码邮件。
type ResetPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

// UpdatePasswordRequest 修改密码，需要已登录。
type UpdatePasswordRequest struct {
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// AuthResponse is returned after a successful sign-in.
type AuthResponse struct {
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserSummary `json:"user"`
}
