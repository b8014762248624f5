package model

// ServiceUnit 服务单元表，对应 service_units
type ServiceUnit struct {
	ID       uint   `gorm:"primaryKey"                             json:"id"`
	Name     string `gorm:"type:varchar(128);not null;uniqueIndex" json:"name"`
	LeaderID uint   `gorm:"not null;index"                         json:"leader_id"`
	BaseModel

	// 关联
	Leader  *User               `gorm:"foreignKey:LeaderID"      json:"leader,omitempty"`
	Members []ServiceUnitMember `gorm:"foreignKey:ServiceUnitID" json:"members,omitempty"`
}

// TableName 指定表名
func (ServiceUnit) TableName() string { return "service_units" }

// ServiceUnitMember 服务单元成员，对应 service_unit_members
// 一个用户至多属于一个服务单元，user_id 唯一
type ServiceUnitMember struct {
	ID            uint `gorm:"primaryKey"         json:"id"`
	ServiceUnitID uint `gorm:"not null;index"     json:"service_unit_id"`
	UserID        uint `gorm:"not null;uniqueIndex" json:"user_id"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (ServiceUnitMember) TableName() string { return "service_unit_members" }
