package dto

// ── 服务单元模块 DTO ──

// ServiceUnitRequest 创建/更新服务单元请求，成员列表为全量替换
type ServiceUnitRequest struct {
	Name      string `json:"name"       binding:"required,max=128"`
	LeaderID  uint   `json:"leader_id"  binding:"required"`
	MemberIDs []uint `json:"member_ids"`
}

// ServiceUnitResponse 服务单元响应
type ServiceUnitResponse struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	LeaderID    uint     `json:"leader_id"`
	LeaderName  string   `json:"leader_name"`
	MemberIDs   []uint   `json:"member_ids"`
	MemberNames []string `json:"member_names"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}
