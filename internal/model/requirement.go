package model

import "time"

// Requirement 需求表，对应 requirements
// ProjectID 与 ProjectStatus 同时为空或同时非空；为空时 Status 必为 pending_schedule
type Requirement struct {
	ID            uint              `gorm:"primaryKey"                                          json:"id"`
	Code          string            `gorm:"type:varchar(64);not null;uniqueIndex"               json:"code"`
	Description   string            `gorm:"type:text;not null"                                  json:"description"`
	Requestor     string            `gorm:"type:varchar(64);not null"                           json:"requestor"`
	Department    string            `gorm:"type:varchar(128);not null"                          json:"department"`
	RequestDate   time.Time         `gorm:"type:date;not null"                                  json:"request_date"`
	Status        RequirementStatus `gorm:"type:varchar(32);not null;default:'pending_schedule';index" json:"status"`
	ProjectID     *string           `gorm:"type:varchar(16);index"                              json:"project_id"`
	ProjectStatus *ProjectStatus    `gorm:"type:varchar(32)"                                    json:"project_status"`
	BaseModel
}

// TableName 指定表名
func (Requirement) TableName() string { return "requirements" }

// Scheduled 是否已排入项目
func (r *Requirement) Scheduled() bool {
	return r.ProjectID != nil
}
