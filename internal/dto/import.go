package dto

// ImportRequirementsResponse 需求导入结果
type ImportRequirementsResponse struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// ImportUsersResponse 用户导入结果
type ImportUsersResponse struct {
	Count   int    `json:"count"`
	Skipped int    `json:"skipped"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}
