package model

// User 用户表，对应 users
type User struct {
	ID           uint    `gorm:"primaryKey"                                  json:"id"`
	Username     string  `gorm:"type:varchar(64);not null;uniqueIndex"       json:"username"`
	Email        *string `gorm:"type:varchar(128);uniqueIndex"               json:"email"`
	Name         string  `gorm:"type:varchar(64);not null;default:''"        json:"name"`
	Phone        string  `gorm:"type:varchar(32);not null;default:''"        json:"phone"`
	PasswordHash string  `gorm:"type:varchar(255);not null"                  json:"-"`
	Role         Role    `gorm:"type:varchar(32);not null;index"             json:"role"`
	Department   string  `gorm:"type:varchar(128);not null;default:''"       json:"department"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// EmailValue 邮箱，未设置时为空串
func (u *User) EmailValue() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
