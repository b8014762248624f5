package dto

// ── 项目模块 DTO ──

// ProjectListRequest 项目列表查询参数
type ProjectListRequest struct {
	PaginationRequest
	Status  string `form:"status"  binding:"omitempty,max=32"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// CreateProjectRequest 创建项目请求
// status 缺省为 new；requirement_ids 中的需求将被排入该项目
type CreateProjectRequest struct {
	Name           string  `json:"name"            binding:"required,max=255"`
	Status         string  `json:"status"`
	LaunchTime     *string `json:"launch_time"`
	RequirementIDs []uint  `json:"requirement_ids"`
}

// UpdateProjectRequest 更新项目请求
type UpdateProjectRequest struct {
	Name       *string `json:"name"        binding:"omitempty,max=255"`
	Status     *string `json:"status"`
	LaunchTime *string `json:"launch_time"`
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	CreateTime     string  `json:"create_time"`
	Status         string  `json:"status"`
	StatusLabel    string  `json:"status_label"`
	LaunchTime     *string `json:"launch_time"`
	RequirementIDs []uint  `json:"requirement_ids"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}
