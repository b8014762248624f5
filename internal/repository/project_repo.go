package repository

import (
	"context"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"req-pool/internal/model"
)

// ProjectIDPrefix 项目编号前缀
const ProjectIDPrefix = "PRJ-"

// ProjectFilter 项目列表过滤条件
type ProjectFilter struct {
	Status  model.ProjectStatus
	Keyword string // 匹配编号、名称
}

// ProjectRepository 项目数据访问接口
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	LockByID(ctx context.Context, id string) (*model.Project, error)
	List(ctx context.Context, filter ProjectFilter, offset, limit int) ([]model.Project, int64, error)
	Update(ctx context.Context, project *model.Project) error
	Delete(ctx context.Context, id string) error
	MaxSequence(ctx context.Context) (int, error)

	// 关联
	AddRequirements(ctx context.Context, projectID string, requirementIDs []uint) error
	RemoveRequirementLinks(ctx context.Context, projectID string) error
	RemoveRequirementLinksOf(ctx context.Context, requirementID uint) error
	RequirementIDs(ctx context.Context, projectIDs []string) (map[string][]uint, error)

	// 统计
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
}

// projectRepo ProjectRepository 的 GORM 实现
type projectRepo struct {
	db *gorm.DB
}

// NewProjectRepo 创建 ProjectRepository 实例
func NewProjectRepo(db *gorm.DB) ProjectRepository {
	return &projectRepo{db: db}
}

func (r *projectRepo) Create(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepo) LockByID(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	err := forUpdate(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepo) List(ctx context.Context, filter ProjectFilter, offset, limit int) ([]model.Project, int64, error) {
	var projects []model.Project
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Project{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Keyword != "" {
		kw := likePattern(filter.Keyword)
		db = db.Where("id LIKE ? OR name LIKE ?", kw, kw)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("id DESC").
		Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

func (r *projectRepo) Update(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

func (r *projectRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Project{}).Error
}

// MaxSequence 返回现有 PRJ-NNN 编号中最大的序号，没有项目时为 0
func (r *projectRepo) MaxSequence(ctx context.Context) (int, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("id LIKE ?", ProjectIDPrefix+"%").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}

	max := 0
	for _, id := range ids {
		n, err := strconv.Atoi(strings.TrimPrefix(id, ProjectIDPrefix))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}

func (r *projectRepo) AddRequirements(ctx context.Context, projectID string, requirementIDs []uint) error {
	if len(requirementIDs) == 0 {
		return nil
	}
	links := make([]model.ProjectRequirement, 0, len(requirementIDs))
	for _, id := range requirementIDs {
		links = append(links, model.ProjectRequirement{ProjectID: projectID, RequirementID: id})
	}
	return r.db.WithContext(ctx).Create(&links).Error
}

func (r *projectRepo) RemoveRequirementLinks(ctx context.Context, projectID string) error {
	return r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&model.ProjectRequirement{}).Error
}

func (r *projectRepo) RemoveRequirementLinksOf(ctx context.Context, requirementID uint) error {
	return r.db.WithContext(ctx).
		Where("requirement_id = ?", requirementID).
		Delete(&model.ProjectRequirement{}).Error
}

// RequirementIDs 批量查询项目关联的需求 id，每个项目的 id 升序
func (r *projectRepo) RequirementIDs(ctx context.Context, projectIDs []string) (map[string][]uint, error) {
	result := make(map[string][]uint, len(projectIDs))
	if len(projectIDs) == 0 {
		return result, nil
	}

	var links []model.ProjectRequirement
	err := r.db.WithContext(ctx).
		Where("project_id IN ?", projectIDs).
		Order("project_id, requirement_id").
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	for _, l := range links {
		result[l.ProjectID] = append(result[l.ProjectID], l.RequirementID)
	}
	return result, nil
}

func (r *projectRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Project{}).Count(&n).Error
	return n, err
}

func (r *projectRepo) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	return rows, err
}
