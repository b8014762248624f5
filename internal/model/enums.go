package model

import "strings"

// ── 角色 ──

// Role 用户角色
type Role string

const (
	RoleSuperAdmin     Role = "super_admin"
	RoleAdmin          Role = "admin"
	RoleProductManager Role = "product_manager"
	RoleDeveloper      Role = "developer"
	RoleTester         Role = "tester"
	RoleStakeholder    Role = "stakeholder"
)

// Roles 全部角色，顺序即展示顺序
var Roles = []Role{
	RoleSuperAdmin, RoleAdmin, RoleProductManager,
	RoleDeveloper, RoleTester, RoleStakeholder,
}

var roleLabels = map[Role]string{
	RoleSuperAdmin:     "超级管理员",
	RoleAdmin:          "管理员",
	RoleProductManager: "产品经理",
	RoleDeveloper:      "开发人员",
	RoleTester:         "测试人员",
	RoleStakeholder:    "干系人",
}

// Valid 是否为已知角色
func (r Role) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

// Label 中文名称
func (r Role) Label() string {
	return roleLabels[r]
}

// ParseRole 解析角色编码或中文名称
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	if r := Role(strings.ToLower(s)); r.Valid() {
		return r, true
	}
	for r, label := range roleLabels {
		if label == s {
			return r, true
		}
	}
	return "", false
}

// ── 需求状态 ──

// RequirementStatus 需求排期状态
type RequirementStatus string

const (
	RequirementPending   RequirementStatus = "pending_schedule"
	RequirementInProject RequirementStatus = "in_project"
	RequirementCompleted RequirementStatus = "completed"
)

// RequirementStatuses 全部需求状态
var RequirementStatuses = []RequirementStatus{
	RequirementPending, RequirementInProject, RequirementCompleted,
}

var requirementStatusLabels = map[RequirementStatus]string{
	RequirementPending:   "待排期",
	RequirementInProject: "已排期",
	RequirementCompleted: "已完成",
}

// 旧数据中的状态名称
var legacyRequirementStatus = map[string]RequirementStatus{
	"已立项": RequirementInProject,
	"已实现": RequirementCompleted,
}

// Valid 是否为已知需求状态
func (s RequirementStatus) Valid() bool {
	_, ok := requirementStatusLabels[s]
	return ok
}

// Label 中文名称
func (s RequirementStatus) Label() string {
	return requirementStatusLabels[s]
}

// ParseRequirementStatus 解析需求状态编码、中文名称或旧名称
// 暂搁置、取消等已废弃状态返回 false
func ParseRequirementStatus(s string) (RequirementStatus, bool) {
	s = strings.TrimSpace(s)
	if st := RequirementStatus(strings.ToLower(s)); st.Valid() {
		return st, true
	}
	for st, label := range requirementStatusLabels {
		if label == s {
			return st, true
		}
	}
	if st, ok := legacyRequirementStatus[s]; ok {
		return st, true
	}
	return "", false
}

// ── 项目状态 ──

// ProjectStatus 项目生命周期状态
type ProjectStatus string

const (
	ProjectNew                 ProjectStatus = "new"
	ProjectRequirementDesign   ProjectStatus = "requirement_design"
	ProjectRequirementHandover ProjectStatus = "requirement_handover"
	ProjectImplementation      ProjectStatus = "implementation"
	ProjectCompleted           ProjectStatus = "completed"
)

// ProjectStatuses 全部项目状态，按生命周期排序
var ProjectStatuses = []ProjectStatus{
	ProjectNew, ProjectRequirementDesign, ProjectRequirementHandover,
	ProjectImplementation, ProjectCompleted,
}

var projectStatusLabels = map[ProjectStatus]string{
	ProjectNew:                 "新建未处理",
	ProjectRequirementDesign:   "需求设计",
	ProjectRequirementHandover: "需求交接",
	ProjectImplementation:      "需求实现",
	ProjectCompleted:           "上线关闭",
}

// Valid 是否为已知项目状态
func (s ProjectStatus) Valid() bool {
	_, ok := projectStatusLabels[s]
	return ok
}

// Label 中文名称
func (s ProjectStatus) Label() string {
	return projectStatusLabels[s]
}

// ParseProjectStatus 解析项目状态编码或中文名称
func ParseProjectStatus(s string) (ProjectStatus, bool) {
	s = strings.TrimSpace(s)
	if st := ProjectStatus(strings.ToLower(s)); st.Valid() {
		return st, true
	}
	for st, label := range projectStatusLabels {
		if label == s {
			return st, true
		}
	}
	return "", false
}
