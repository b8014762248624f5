package model

import "time"

// BaseModel 通用时间戳字段（业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// All 需要建表的全部模型，mysql/sqlite 下供 AutoMigrate 使用
func All() []interface{} {
	return []interface{}{
		&User{},
		&Project{},
		&Requirement{},
		&ProjectRequirement{},
		&ServiceUnit{},
		&ServiceUnitMember{},
	}
}
