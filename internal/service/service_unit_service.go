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
)

// ── 服务单元模块业务错误 ──

var (
	ErrServiceUnitNotFound   = pkgerrors.New(pkgerrors.KindNotFound, 15001, "服务单元不存在")
	ErrServiceUnitNameExists = pkgerrors.New(pkgerrors.KindConflict, 15002, "服务单元名称已存在")
	ErrMemberAssigned        = pkgerrors.New(pkgerrors.KindConflict, 15003, "成员已属于其他服务单元")
	ErrLeaderNotFound        = pkgerrors.New(pkgerrors.KindNotFound, 15004, "负责人不存在")
	ErrMemberNotFound        = pkgerrors.New(pkgerrors.KindNotFound, 15005, "成员不存在")
	ErrServiceUnitNameEmpty  = pkgerrors.New(pkgerrors.KindValidation, 15006, "服务单元名称不能为空")
	ErrServiceUnitConflict   = pkgerrors.New(pkgerrors.KindConflict, 15007, "服务单元数据冲突，请刷新后重试")
)

// ServiceUnitService 服务单元业务接口
// 一个用户至多属于一个服务单元；单元与成员的写入在同一事务内完成
type ServiceUnitService interface {
	Create(ctx context.Context, req *dto.ServiceUnitRequest) (*dto.ServiceUnitResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.ServiceUnitResponse, error)
	List(ctx context.Context) ([]dto.ServiceUnitResponse, error)
	Update(ctx context.Context, id uint, req *dto.ServiceUnitRequest) (*dto.ServiceUnitResponse, error)
	Delete(ctx context.Context, id uint) error
	ListUnassignedUsers(ctx context.Context) ([]dto.UserResponse, error)
}

type serviceUnitService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewServiceUnitService 创建 ServiceUnitService 实例
func NewServiceUnitService(repo *repository.Repository, logger *zap.Logger) ServiceUnitService {
	return &serviceUnitService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *serviceUnitService) Create(ctx context.Context, req *dto.ServiceUnitRequest) (*dto.ServiceUnitResponse, error) {
	name := strings.TrimSpace(req.Name)
	memberIDs := uniqueIDs(req.MemberIDs)

	if err := s.precheck(ctx, 0, name, req.LeaderID, memberIDs); err != nil {
		return nil, err
	}

	unit := &model.ServiceUnit{Name: name, LeaderID: req.LeaderID}
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.ServiceUnit.Create(ctx, unit); err != nil {
			return err
		}
		return tx.ServiceUnit.AddMembers(ctx, unit.ID, memberIDs)
	})
	if err != nil {
		return nil, s.translateWriteErr(err, "创建服务单元失败")
	}

	s.logger.Info("创建服务单元", zap.Uint("id", unit.ID), zap.Int("members", len(memberIDs)))
	return s.GetByID(ctx, unit.ID)
}

// precheck 写入前校验：名称唯一、负责人与成员存在、成员未被其他单元占用
// excludeID 为正在更新的单元（创建时为 0）
func (s *serviceUnitService) precheck(ctx context.Context, excludeID uint, name string, leaderID uint, memberIDs []uint) error {
	if name == "" {
		return ErrServiceUnitNameEmpty
	}

	existing, err := s.repo.ServiceUnit.GetByName(ctx, name)
	if err == nil && existing.ID != excludeID {
		return ErrServiceUnitNameExists.WithDetail("%s", name)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询服务单元名称失败", zap.Error(err))
		return err
	}

	if _, err := s.repo.User.GetByID(ctx, leaderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLeaderNotFound.WithDetail("id=%d", leaderID)
		}
		return err
	}

	users, err := s.repo.User.ListByIDs(ctx, memberIDs)
	if err != nil {
		return err
	}
	if len(users) != len(memberIDs) {
		found := make(map[uint]bool, len(users))
		for _, u := range users {
			found[u.ID] = true
		}
		var missing []string
		for _, id := range memberIDs {
			if !found[id] {
				missing = append(missing, fmt.Sprint(id))
			}
		}
		return ErrMemberNotFound.WithDetail("id=%s", strings.Join(missing, ","))
	}

	taken, err := s.repo.ServiceUnit.FindMemberships(ctx, memberIDs, excludeID)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		ids := make([]string, 0, len(taken))
		for _, m := range taken {
			ids = append(ids, fmt.Sprint(m.UserID))
		}
		return ErrMemberAssigned.WithDetail("user_id=%s", strings.Join(ids, ","))
	}

	return nil
}

// translateWriteErr 并发写入时的唯一约束冲突兜底翻译为业务错误
func (s *serviceUnitService) translateWriteErr(err error, msg string) error {
	if _, ok := pkgerrors.As(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		s.logger.Warn(msg, zap.Error(err))
		return ErrServiceUnitConflict
	}
	s.logger.Error(msg, zap.Error(err))
	return err
}

// ────────────────────── 查询 ──────────────────────

func (s *serviceUnitService) GetByID(ctx context.Context, id uint) (*dto.ServiceUnitResponse, error) {
	unit, err := s.repo.ServiceUnit.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceUnitNotFound
		}
		s.logger.Error("查询服务单元失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	resp := toServiceUnitResponse(unit)
	return &resp, nil
}

func (s *serviceUnitService) List(ctx context.Context) ([]dto.ServiceUnitResponse, error) {
	units, err := s.repo.ServiceUnit.List(ctx)
	if err != nil {
		s.logger.Error("查询服务单元列表失败", zap.Error(err))
		return nil, err
	}
	out := make([]dto.ServiceUnitResponse, 0, len(units))
	for i := range units {
		out = append(out, toServiceUnitResponse(&units[i]))
	}
	return out, nil
}

// ListUnassignedUsers 未加入任何服务单元的用户
func (s *serviceUnitService) ListUnassignedUsers(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.repo.User.ListUnassigned(ctx)
	if err != nil {
		s.logger.Error("查询未分配用户失败", zap.Error(err))
		return nil, err
	}
	return toUserResponses(users), nil
}

// ────────────────────── Update ──────────────────────

// Update 修改单元信息并全量替换成员
func (s *serviceUnitService) Update(ctx context.Context, id uint, req *dto.ServiceUnitRequest) (*dto.ServiceUnitResponse, error) {
	if _, err := s.repo.ServiceUnit.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceUnitNotFound
		}
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	memberIDs := uniqueIDs(req.MemberIDs)
	if err := s.precheck(ctx, id, name, req.LeaderID, memberIDs); err != nil {
		return nil, err
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.ServiceUnit.Update(ctx, &model.ServiceUnit{ID: id, Name: name, LeaderID: req.LeaderID}); err != nil {
			return err
		}
		if err := tx.ServiceUnit.DeleteMembers(ctx, id); err != nil {
			return err
		}
		return tx.ServiceUnit.AddMembers(ctx, id, memberIDs)
	})
	if err != nil {
		return nil, s.translateWriteErr(err, "更新服务单元失败")
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── Delete ──────────────────────

func (s *serviceUnitService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.ServiceUnit.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrServiceUnitNotFound
		}
		return err
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.ServiceUnit.DeleteMembers(ctx, id); err != nil {
			return err
		}
		return tx.ServiceUnit.Delete(ctx, id)
	})
	if err != nil {
		s.logger.Error("删除服务单元失败", zap.Uint("id", id), zap.Error(err))
		return err
	}
	return nil
}
