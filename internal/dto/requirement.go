package dto

// ── 需求模块 DTO ──

// RequirementListRequest 需求列表查询参数
type RequirementListRequest struct {
	PaginationRequest
	Status     string `form:"status"     binding:"omitempty,max=32"`
	Department string `form:"department" binding:"omitempty,max=128"`
	ProjectID  string `form:"project_id" binding:"omitempty,max=16"`
	Keyword    string `form:"keyword"    binding:"omitempty,max=50"`
}

// CreateRequirementRequest 创建需求请求，新需求一律为待排期
type CreateRequirementRequest struct {
	Code        string `json:"code"         binding:"required,max=64"`
	Description string `json:"description"  binding:"required"`
	Requestor   string `json:"requestor"    binding:"required,max=64"`
	Department  string `json:"department"   binding:"required,max=128"`
	RequestDate string `json:"request_date" binding:"omitempty"` // YYYY-MM-DD，缺省为当天
}

// UpdateRequirementRequest 更新需求请求，项目字段不可直接修改
type UpdateRequirementRequest struct {
	Code        *string `json:"code"         binding:"omitempty,max=64"`
	Description *string `json:"description"`
	Requestor   *string `json:"requestor"    binding:"omitempty,max=64"`
	Department  *string `json:"department"   binding:"omitempty,max=128"`
	RequestDate *string `json:"request_date"`
	Status      *string `json:"status"`
}

// RequirementResponse 需求响应
type RequirementResponse struct {
	ID                 uint    `json:"id"`
	Code               string  `json:"code"`
	Description        string  `json:"description"`
	Requestor          string  `json:"requestor"`
	Department         string  `json:"department"`
	RequestDate        string  `json:"request_date"`
	Status             string  `json:"status"`
	StatusLabel        string  `json:"status_label"`
	ProjectID          *string `json:"project_id"`
	ProjectStatus      *string `json:"project_status"`
	ProjectStatusLabel string  `json:"project_status_label,omitempty"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}
