package repository

import (
	"context"

	"gorm.io/gorm"

	"req-pool/internal/model"
)

// RequirementFilter 需求列表过滤条件
type RequirementFilter struct {
	Status     model.RequirementStatus
	Department string
	ProjectID  string
	Keyword    string // 匹配编号、描述、提出人
}

// RequirementRepository 需求数据访问接口
type RequirementRepository interface {
	Create(ctx context.Context, req *model.Requirement) error
	CreateBatch(ctx context.Context, reqs []model.Requirement) error
	GetByID(ctx context.Context, id uint) (*model.Requirement, error)
	GetByCode(ctx context.Context, code string) (*model.Requirement, error)
	LockByIDs(ctx context.Context, ids []uint) ([]model.Requirement, error)
	ExistingCodes(ctx context.Context, codes []string) ([]string, error)
	List(ctx context.Context, filter RequirementFilter, offset, limit int) ([]model.Requirement, int64, error)
	ListAll(ctx context.Context, filter RequirementFilter) ([]model.Requirement, error)
	Update(ctx context.Context, req *model.Requirement) error
	Delete(ctx context.Context, id uint) error

	// 项目联动
	AssignToProject(ctx context.Context, ids []uint, projectID string, status model.ProjectStatus) (int64, error)
	SetProjectStatus(ctx context.Context, projectID string, status model.ProjectStatus) (int64, error)
	DetachFromProject(ctx context.Context, projectID string) (int64, error)

	// 统计
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
}

// requirementRepo RequirementRepository 的 GORM 实现
type requirementRepo struct {
	db *gorm.DB
}

// NewRequirementRepo 创建 RequirementRepository 实例
func NewRequirementRepo(db *gorm.DB) RequirementRepository {
	return &requirementRepo{db: db}
}

func (r *requirementRepo) Create(ctx context.Context, req *model.Requirement) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *requirementRepo) CreateBatch(ctx context.Context, reqs []model.Requirement) error {
	if len(reqs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(reqs, 100).Error
}

func (r *requirementRepo) GetByID(ctx context.Context, id uint) (*model.Requirement, error) {
	var req model.Requirement
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requirementRepo) GetByCode(ctx context.Context, code string) (*model.Requirement, error) {
	var req model.Requirement
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// LockByIDs 加行锁读取需求，结果按 id 升序
func (r *requirementRepo) LockByIDs(ctx context.Context, ids []uint) ([]model.Requirement, error) {
	var reqs []model.Requirement
	if len(ids) == 0 {
		return reqs, nil
	}
	err := forUpdate(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("id").
		Find(&reqs).Error
	return reqs, err
}

func (r *requirementRepo) ExistingCodes(ctx context.Context, codes []string) ([]string, error) {
	var hits []string
	if len(codes) == 0 {
		return hits, nil
	}
	err := r.db.WithContext(ctx).
		Model(&model.Requirement{}).
		Where("code IN ?", codes).
		Order("code").
		Pluck("code", &hits).Error
	return hits, err
}

func (r *requirementRepo) filtered(ctx context.Context, filter RequirementFilter) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.Requirement{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Department != "" {
		db = db.Where("department = ?", filter.Department)
	}
	if filter.ProjectID != "" {
		db = db.Where("project_id = ?", filter.ProjectID)
	}
	if filter.Keyword != "" {
		kw := likePattern(filter.Keyword)
		db = db.Where("code LIKE ? OR description LIKE ? OR requestor LIKE ?", kw, kw, kw)
	}
	return db
}

func (r *requirementRepo) List(ctx context.Context, filter RequirementFilter, offset, limit int) ([]model.Requirement, int64, error) {
	var reqs []model.Requirement
	var total int64

	db := r.filtered(ctx, filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("id DESC").
		Find(&reqs).Error; err != nil {
		return nil, 0, err
	}

	return reqs, total, nil
}

func (r *requirementRepo) ListAll(ctx context.Context, filter RequirementFilter) ([]model.Requirement, error) {
	var reqs []model.Requirement
	err := r.filtered(ctx, filter).Order("id ASC").Find(&reqs).Error
	return reqs, err
}

// Update 只写描述字段与排期状态，项目字段由 AssignToProject 等方法维护
func (r *requirementRepo) Update(ctx context.Context, req *model.Requirement) error {
	return r.db.WithContext(ctx).
		Model(req).
		Select("code", "description", "requestor", "department", "request_date", "status", "updated_at").
		Updates(req).Error
}

func (r *requirementRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Requirement{}, id).Error
}

// AssignToProject 将需求排入项目
func (r *requirementRepo) AssignToProject(ctx context.Context, ids []uint, projectID string, status model.ProjectStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.Requirement{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":         model.RequirementInProject,
			"project_id":     projectID,
			"project_status": status,
		})
	return res.RowsAffected, res.Error
}

// SetProjectStatus 同步项目状态到其下所有需求，不改变排期状态
func (r *requirementRepo) SetProjectStatus(ctx context.Context, projectID string, status model.ProjectStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Requirement{}).
		Where("project_id = ?", projectID).
		Update("project_status", status)
	return res.RowsAffected, res.Error
}

// DetachFromProject 将项目下所有需求恢复为待排期
func (r *requirementRepo) DetachFromProject(ctx context.Context, projectID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Requirement{}).
		Where("project_id = ?", projectID).
		Updates(map[string]interface{}{
			"status":         model.RequirementPending,
			"project_id":     gorm.Expr("NULL"),
			"project_status": gorm.Expr("NULL"),
		})
	return res.RowsAffected, res.Error
}

func (r *requirementRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Requirement{}).Count(&n).Error
	return n, err
}

func (r *requirementRepo) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&model.Requirement{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	return rows, err
}
