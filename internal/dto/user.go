package dto

// ── 用户模块 DTO ──

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role       string `form:"role"       binding:"omitempty,max=32"`
	Department string `form:"department" binding:"omitempty,max=128"`
	Keyword    string `form:"keyword"    binding:"omitempty,max=50"`
}

// CreateUserRequest 管理员创建用户请求
// role 接受编码或中文名称；password 为空时使用默认密码
type CreateUserRequest struct {
	Username   string `json:"username"   binding:"required,min=2,max=64"`
	Password   string `json:"password"   binding:"omitempty,min=6,max=64"`
	Role       string `json:"role"       binding:"required"`
	Name       string `json:"name"       binding:"omitempty,max=64"`
	Phone      string `json:"phone"      binding:"omitempty,max=32"`
	Email      string `json:"email"      binding:"omitempty,email,max=128"`
	Department string `json:"department" binding:"omitempty,max=128"`
}

// CreateUserResponse 创建用户响应，使用默认密码时回显临时密码
type CreateUserResponse struct {
	UserResponse
	TempPassword string `json:"temp_password,omitempty"`
}

// UpdateUserRequest 更新用户信息请求
type UpdateUserRequest struct {
	Username   *string `json:"username"   binding:"omitempty,min=2,max=64"`
	Email      *string `json:"email"      binding:"omitempty,email,max=128"`
	Name       *string `json:"name"       binding:"omitempty,max=64"`
	Phone      *string `json:"phone"      binding:"omitempty,max=32"`
	Role       *string `json:"role"`
	Department *string `json:"department" binding:"omitempty,max=128"`
}

// ResetPasswordRequest 重置密码请求，password 为空时生成临时密码
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"omitempty,min=6,max=64"`
}

// ResetPasswordResponse 重置密码响应
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password,omitempty"`
}
