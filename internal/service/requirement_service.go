package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"req-pool/internal/dto"
	"req-pool/internal/model"
	"req-pool/internal/repository"
	pkgerrors "req-pool/pkg/errors"
)

// ── 需求模块业务错误 ──

var (
	ErrRequirementNotFound      = pkgerrors.New(pkgerrors.KindNotFound, 13001, "需求不存在")
	ErrRequirementCodeExists    = pkgerrors.New(pkgerrors.KindConflict, 13002, "需求编号已存在")
	ErrRequirementStatusInvalid = pkgerrors.New(pkgerrors.KindValidation, 13003, "需求状态与排期不一致")
	ErrRequirementBadStatus     = pkgerrors.New(pkgerrors.KindValidation, 13004, "无效的需求状态")
	ErrRequirementBadDate       = pkgerrors.New(pkgerrors.KindValidation, 13005, "无效的日期格式")
	ErrRequirementFieldEmpty    = pkgerrors.New(pkgerrors.KindValidation, 13006, "需求字段不能为空")
)

// RequirementService 需求管理业务接口
type RequirementService interface {
	Create(ctx context.Context, req *dto.CreateRequirementRequest) (*dto.RequirementResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.RequirementResponse, error)
	List(ctx context.Context, req *dto.RequirementListRequest) ([]dto.RequirementResponse, int64, error)
	Update(ctx context.Context, id uint, req *dto.UpdateRequirementRequest) (*dto.RequirementResponse, error)
	Delete(ctx context.Context, id uint) error
}

type requirementService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRequirementService 创建 RequirementService 实例
func NewRequirementService(repo *repository.Repository, logger *zap.Logger) RequirementService {
	return &requirementService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

// Create 新建需求，状态固定为待排期，排期只能通过项目完成
func (s *requirementService) Create(ctx context.Context, req *dto.CreateRequirementRequest) (*dto.RequirementResponse, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" || strings.TrimSpace(req.Description) == "" ||
		strings.TrimSpace(req.Requestor) == "" || strings.TrimSpace(req.Department) == "" {
		return nil, ErrRequirementFieldEmpty
	}

	requestDate := today()
	if req.RequestDate != "" {
		d, ok := parseDate(req.RequestDate)
		if !ok {
			return nil, ErrRequirementBadDate.WithDetail("%s", req.RequestDate)
		}
		requestDate = d
	}

	if _, err := s.repo.Requirement.GetByCode(ctx, code); err == nil {
		return nil, ErrRequirementCodeExists.WithDetail("%s", code)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询需求编号失败", zap.Error(err))
		return nil, err
	}

	r := &model.Requirement{
		Code:        code,
		Description: strings.TrimSpace(req.Description),
		Requestor:   strings.TrimSpace(req.Requestor),
		Department:  strings.TrimSpace(req.Department),
		RequestDate: requestDate,
		Status:      model.RequirementPending,
	}
	if err := s.repo.Requirement.Create(ctx, r); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrRequirementCodeExists.WithDetail("%s", code)
		}
		s.logger.Error("创建需求失败", zap.Error(err))
		return nil, err
	}

	resp := toRequirementResponse(r)
	return &resp, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *requirementService) GetByID(ctx context.Context, id uint) (*dto.RequirementResponse, error) {
	r, err := s.repo.Requirement.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequirementNotFound
		}
		s.logger.Error("查询需求失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	resp := toRequirementResponse(r)
	return &resp, nil
}

func (s *requirementService) List(ctx context.Context, req *dto.RequirementListRequest) ([]dto.RequirementResponse, int64, error) {
	filter, err := requirementFilter(req)
	if err != nil {
		return nil, 0, err
	}

	reqs, total, err := s.repo.Requirement.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询需求列表失败", zap.Error(err))
		return nil, 0, err
	}

	out := make([]dto.RequirementResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, toRequirementResponse(&reqs[i]))
	}
	return out, total, nil
}

func requirementFilter(req *dto.RequirementListRequest) (repository.RequirementFilter, error) {
	filter := repository.RequirementFilter{
		Department: req.Department,
		ProjectID:  req.ProjectID,
		Keyword:    req.Keyword,
	}
	if req.Status != "" {
		st, ok := model.ParseRequirementStatus(req.Status)
		if !ok {
			return filter, ErrRequirementBadStatus.WithDetail("%s", req.Status)
		}
		filter.Status = st
	}
	return filter, nil
}

// ────────────────────── Update ──────────────────────

// Update 修改需求描述字段
// 已排期需求只能在 in_project 与 completed 之间切换；未排期需求必须保持待排期
func (s *requirementService) Update(ctx context.Context, id uint, req *dto.UpdateRequirementRequest) (*dto.RequirementResponse, error) {
	var updated *model.Requirement
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 加锁读取，避免与项目删除并发时写回过期的排期状态
		locked, err := tx.Requirement.LockByIDs(ctx, []uint{id})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return ErrRequirementNotFound
		}
		r := &locked[0]

		if err := s.applyUpdate(ctx, tx, r, req); err != nil {
			return err
		}
		if err := tx.Requirement.Update(ctx, r); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrRequirementCodeExists.WithDetail("%s", r.Code)
			}
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		if _, ok := pkgerrors.As(err); !ok {
			s.logger.Error("更新需求失败", zap.Uint("id", id), zap.Error(err))
		}
		return nil, err
	}

	resp := toRequirementResponse(updated)
	return &resp, nil
}

func (s *requirementService) applyUpdate(ctx context.Context, tx *repository.Repository, r *model.Requirement, req *dto.UpdateRequirementRequest) error {
	if req.Code != nil {
		code := strings.TrimSpace(*req.Code)
		if code == "" {
			return ErrRequirementFieldEmpty.WithDetail("code")
		}
		if code != r.Code {
			existing, err := tx.Requirement.GetByCode(ctx, code)
			if err == nil && existing.ID != r.ID {
				return ErrRequirementCodeExists.WithDetail("%s", code)
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		r.Code = code
	}

	for field, val := range map[string]*string{
		"description": req.Description,
		"requestor":   req.Requestor,
		"department":  req.Department,
	} {
		if val != nil && strings.TrimSpace(*val) == "" {
			return ErrRequirementFieldEmpty.WithDetail("%s", field)
		}
	}
	if req.Description != nil {
		r.Description = strings.TrimSpace(*req.Description)
	}
	if req.Requestor != nil {
		r.Requestor = strings.TrimSpace(*req.Requestor)
	}
	if req.Department != nil {
		r.Department = strings.TrimSpace(*req.Department)
	}
	if req.RequestDate != nil {
		d, ok := parseDate(*req.RequestDate)
		if !ok {
			return ErrRequirementBadDate.WithDetail("%s", *req.RequestDate)
		}
		r.RequestDate = d
	}

	if req.Status != nil {
		st, ok := model.ParseRequirementStatus(*req.Status)
		if !ok {
			return ErrRequirementBadStatus.WithDetail("%s", *req.Status)
		}
		if r.Scheduled() == (st == model.RequirementPending) {
			return ErrRequirementStatusInvalid
		}
		r.Status = st
	}
	return nil
}

// ────────────────────── Delete ──────────────────────

func (s *requirementService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.Requirement.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequirementNotFound
		}
		return err
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Project.RemoveRequirementLinksOf(ctx, id); err != nil {
			return err
		}
		return tx.Requirement.Delete(ctx, id)
	})
	if err != nil {
		s.logger.Error("删除需求失败", zap.Uint("id", id), zap.Error(err))
		return err
	}
	return nil
}
