package model

import "time"

// Project 项目表，对应 projects，主键为 PRJ-NNN 形式的业务编号
type Project struct {
	ID         string        `gorm:"type:varchar(16);primaryKey"                  json:"id"`
	Name       string        `gorm:"type:varchar(255);not null"                   json:"name"`
	CreateTime time.Time     `gorm:"type:date;not null"                           json:"create_time"`
	Status     ProjectStatus `gorm:"type:varchar(32);not null;default:'new';index" json:"status"`
	LaunchTime *time.Time    `                                                    json:"launch_time"`
	BaseModel
}

// TableName 指定表名
func (Project) TableName() string { return "projects" }

// ProjectRequirement 项目与需求的关联，对应 project_requirements
type ProjectRequirement struct {
	ProjectID     string `gorm:"type:varchar(16);primaryKey" json:"project_id"`
	RequirementID uint   `gorm:"primaryKey;index"            json:"requirement_id"`
}

// TableName 指定表名
func (ProjectRequirement) TableName() string { return "project_requirements" }
