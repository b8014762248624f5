package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录成功响应
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// RegisterRequest 自助注册请求，username 缺省时使用邮箱
type RegisterRequest struct {
	Email      string `json:"email"      binding:"required,email,max=128"`
	Password   string `json:"password"   binding:"required,min=6,max=64"`
	Name       string `json:"name"       binding:"required,max=64"`
	Department string `json:"department" binding:"omitempty,max=128"`
	Username   string `json:"username"   binding:"omitempty,min=2,max=64"`
}

// UpdateProfileRequest 修改个人信息请求
type UpdateProfileRequest struct {
	Name       *string `json:"name"       binding:"omitempty,max=64"`
	Email      *string `json:"email"      binding:"omitempty,email,max=128"`
	Phone      *string `json:"phone"      binding:"omitempty,max=32"`
	Department *string `json:"department" binding:"omitempty,max=128"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=64"`
}
