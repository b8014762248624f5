package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"req-pool/internal/dto"
	"req-pool/internal/model"
	"req-pool/internal/repository"
	pkgerrors "req-pool/pkg/errors"
	"req-pool/pkg/metrics"
)

// ── 项目模块业务错误 ──

var (
	ErrProjectNotFound           = pkgerrors.New(pkgerrors.KindNotFound, 14001, "项目不存在")
	ErrProjectRequirementMissing = pkgerrors.New(pkgerrors.KindValidation, 14002, "关联需求不存在")
	ErrRequirementAlreadyInUse   = pkgerrors.New(pkgerrors.KindConflict, 14003, "需求已排入其他项目")
	ErrProjectBadStatus          = pkgerrors.New(pkgerrors.KindValidation, 14004, "无效的项目状态")
	ErrProjectBadLaunchTime      = pkgerrors.New(pkgerrors.KindValidation, 14005, "无效的上线时间")
	ErrProjectNameEmpty          = pkgerrors.New(pkgerrors.KindValidation, 14006, "项目名称不能为空")
)

// 编号冲突时的最大重试次数
const projectIDRetries = 3

// ProjectService 项目管理业务接口
// 项目的创建、状态变更与删除会同步改写关联需求的排期字段
type ProjectService interface {
	Create(ctx context.Context, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ProjectResponse, error)
	List(ctx context.Context, req *dto.ProjectListRequest) ([]dto.ProjectResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error)
	Delete(ctx context.Context, id string) error
}

type projectService struct {
	repo    *repository.Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewProjectService 创建 ProjectService 实例
func NewProjectService(repo *repository.Repository, m *metrics.Metrics, logger *zap.Logger) ProjectService {
	return &projectService{repo: repo, metrics: m, logger: logger}
}

// formatProjectID 生成 PRJ-NNN 编号
func formatProjectID(seq int) string {
	return fmt.Sprintf("%s%03d", repository.ProjectIDPrefix, seq)
}

// ────────────────────── Create ──────────────────────

// Create 创建项目并把 requirement_ids 中的需求排入该项目
// 任一需求不存在或已属于其他项目时整体失败，不修改任何数据
func (s *projectService) Create(ctx context.Context, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrProjectNameEmpty
	}

	status := model.ProjectNew
	if req.Status != "" {
		st, ok := model.ParseProjectStatus(req.Status)
		if !ok {
			return nil, ErrProjectBadStatus.WithDetail("%s", req.Status)
		}
		status = st
	}

	project := &model.Project{
		Name:       name,
		CreateTime: today(),
		Status:     status,
	}
	if req.LaunchTime != nil && strings.TrimSpace(*req.LaunchTime) != "" {
		lt, ok := parseDateTime(*req.LaunchTime)
		if !ok {
			return nil, ErrProjectBadLaunchTime.WithDetail("%s", *req.LaunchTime)
		}
		project.LaunchTime = &lt
	}

	reqIDs := uniqueIDs(req.RequirementIDs)

	var err error
	for attempt := 1; attempt <= projectIDRetries; attempt++ {
		err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			return s.createInTx(ctx, tx, project, reqIDs)
		})
		// 并发创建拿到相同编号时重试
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		s.logger.Warn("项目编号冲突，重试", zap.String("id", project.ID), zap.Int("attempt", attempt))
	}
	if err != nil {
		if _, ok := pkgerrors.As(err); !ok {
			s.logger.Error("创建项目失败", zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordStatusSync("create", len(reqIDs))
	s.logger.Info("创建项目",
		zap.String("id", project.ID),
		zap.Int("requirements", len(reqIDs)),
	)

	resp := toProjectResponse(project, reqIDs)
	return &resp, nil
}

func (s *projectService) createInTx(ctx context.Context, tx *repository.Repository, project *model.Project, reqIDs []uint) error {
	// 1. 锁定并校验需求
	reqs, err := tx.Requirement.LockByIDs(ctx, reqIDs)
	if err != nil {
		return err
	}
	if len(reqs) != len(reqIDs) {
		found := make(map[uint]bool, len(reqs))
		for _, r := range reqs {
			found[r.ID] = true
		}
		var missing []string
		for _, id := range reqIDs {
			if !found[id] {
				missing = append(missing, fmt.Sprint(id))
			}
		}
		return ErrProjectRequirementMissing.WithDetail("%s", strings.Join(missing, ","))
	}
	for _, r := range reqs {
		if r.Scheduled() {
			return ErrRequirementAlreadyInUse.WithDetail("%s 已属于 %s", r.Code, *r.ProjectID)
		}
	}

	// 2. 生成编号并写入项目
	seq, err := tx.Project.MaxSequence(ctx)
	if err != nil {
		return err
	}
	project.ID = formatProjectID(seq + 1)
	if err := tx.Project.Create(ctx, project); err != nil {
		return err
	}

	// 3. 关联与状态同步
	if err := tx.Project.AddRequirements(ctx, project.ID, reqIDs); err != nil {
		return err
	}
	_, err = tx.Requirement.AssignToProject(ctx, reqIDs, project.ID, project.Status)
	return err
}

// ────────────────────── 查询 ──────────────────────

func (s *projectService) GetByID(ctx context.Context, id string) (*dto.ProjectResponse, error) {
	project, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	links, err := s.repo.Project.RequirementIDs(ctx, []string{id})
	if err != nil {
		s.logger.Error("查询项目关联需求失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toProjectResponse(project, links[id])
	return &resp, nil
}

func (s *projectService) List(ctx context.Context, req *dto.ProjectListRequest) ([]dto.ProjectResponse, int64, error) {
	filter := repository.ProjectFilter{Keyword: req.Keyword}
	if req.Status != "" {
		st, ok := model.ParseProjectStatus(req.Status)
		if !ok {
			return nil, 0, ErrProjectBadStatus.WithDetail("%s", req.Status)
		}
		filter.Status = st
	}

	projects, total, err := s.repo.Project.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询项目列表失败", zap.Error(err))
		return nil, 0, err
	}

	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	links, err := s.repo.Project.RequirementIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询项目关联需求失败", zap.Error(err))
		return nil, 0, err
	}

	out := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, toProjectResponse(&projects[i], links[projects[i].ID]))
	}
	return out, total, nil
}

// ────────────────────── Update ──────────────────────

// Update 修改项目；提供 status 时同步写入其下所有需求的 project_status
func (s *projectService) Update(ctx context.Context, id string, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error) {
	var status *model.ProjectStatus
	if req.Status != nil {
		st, ok := model.ParseProjectStatus(*req.Status)
		if !ok {
			return nil, ErrProjectBadStatus.WithDetail("%s", *req.Status)
		}
		status = &st
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, ErrProjectNameEmpty
	}

	var project *model.Project
	var synced int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		p, err := tx.Project.LockByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return err
		}

		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.LaunchTime != nil {
			if strings.TrimSpace(*req.LaunchTime) == "" {
				p.LaunchTime = nil
			} else {
				lt, ok := parseDateTime(*req.LaunchTime)
				if !ok {
					return ErrProjectBadLaunchTime.WithDetail("%s", *req.LaunchTime)
				}
				p.LaunchTime = &lt
			}
		}
		if status != nil {
			p.Status = *status
		}

		if err := tx.Project.Update(ctx, p); err != nil {
			return err
		}

		if status != nil {
			n, err := tx.Requirement.SetProjectStatus(ctx, id, *status)
			if err != nil {
				return err
			}
			synced = n
		}

		project = p
		return nil
	})
	if err != nil {
		if _, ok := pkgerrors.As(err); !ok {
			s.logger.Error("更新项目失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordStatusSync("update", int(synced))

	links, err := s.repo.Project.RequirementIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	resp := toProjectResponse(project, links[id])
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

// Delete 删除项目，其下需求恢复为待排期
// 需求重置、关联删除、项目删除在同一事务内完成
func (s *projectService) Delete(ctx context.Context, id string) error {
	var detached int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Project.LockByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return err
		}

		n, err := tx.Requirement.DetachFromProject(ctx, id)
		if err != nil {
			return err
		}
		detached = n

		if err := tx.Project.RemoveRequirementLinks(ctx, id); err != nil {
			return err
		}
		return tx.Project.Delete(ctx, id)
	})
	if err != nil {
		if _, ok := pkgerrors.As(err); !ok {
			s.logger.Error("删除项目失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	s.metrics.RecordStatusSync("delete", int(detached))
	s.logger.Info("删除项目", zap.String("id", id), zap.Int64("requirements_reset", detached))
	return nil
}
