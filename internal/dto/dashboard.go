package dto

// DashboardResponse 仪表盘统计，两个分布均包含全部状态（无数据时为 0）
type DashboardResponse struct {
	TotalRequirements    int64            `json:"total_requirements"`
	TotalProjects        int64            `json:"total_projects"`
	RequirementsByStatus map[string]int64 `json:"requirements_by_status"`
	ProjectsByStatus     map[string]int64 `json:"projects_by_status"`
}
