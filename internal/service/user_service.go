package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"req-pool/config"
	"req-pool/internal/dto"
	"req-pool/internal/model"
	"req-pool/internal/repository"
	pkgerrors "req-pool/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrUserNotFound         = pkgerrors.New(pkgerrors.KindNotFound, 12001, "用户不存在")
	ErrUsernameExists       = pkgerrors.New(pkgerrors.KindConflict, 12002, "用户名已存在")
	ErrEmailExists          = pkgerrors.New(pkgerrors.KindConflict, 12003, "邮箱已被使用")
	ErrSuperAdminDelete     = pkgerrors.New(pkgerrors.KindForbidden, 12004, "不能删除超级管理员")
	ErrUserSelfDelete       = pkgerrors.New(pkgerrors.KindForbidden, 12005, "不能删除自己")
	ErrUserIsUnitLeader     = pkgerrors.New(pkgerrors.KindConflict, 12006, "该用户是服务单元负责人，请先更换负责人")
	ErrInvalidRole          = pkgerrors.New(pkgerrors.KindValidation, 12007, "无效的角色")
	ErrUserSelfRoleChange   = pkgerrors.New(pkgerrors.KindForbidden, 12008, "不能修改自己的角色")
	ErrSuperAdminAssignment = pkgerrors.New(pkgerrors.KindForbidden, 12009, "仅超级管理员可以授予或变更超级管理员角色")
)

// UserService 用户管理业务接口
type UserService interface {
	Create(ctx context.Context, req *dto.CreateUserRequest, callerRole model.Role) (*dto.CreateUserResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.UserResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	Update(ctx context.Context, id uint, req *dto.UpdateUserRequest, callerID uint, callerRole model.Role) (*dto.UserResponse, error)
	Delete(ctx context.Context, id uint, callerID uint) error
	ResetPassword(ctx context.Context, id uint, req *dto.ResetPasswordRequest) (*dto.ResetPasswordResponse, error)
}

type userService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest, callerRole model.Role) (*dto.CreateUserResponse, error) {
	role, ok := model.ParseRole(req.Role)
	if !ok {
		return nil, ErrInvalidRole.WithDetail("%s", req.Role)
	}
	if role == model.RoleSuperAdmin && callerRole != model.RoleSuperAdmin {
		return nil, ErrSuperAdminAssignment
	}

	username := strings.TrimSpace(req.Username)
	email := optionalString(req.Email)
	if err := s.checkUnique(ctx, 0, username, email); err != nil {
		return nil, err
	}

	// 未提供密码时使用默认密码，并在响应中回显
	password := req.Password
	tempPassword := ""
	if password == "" {
		password = s.cfg.Auth.DefaultPassword
		tempPassword = password
	}

	hash, err := hashPassword(password)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Role:         role,
		Department:   strings.TrimSpace(req.Department),
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameExists
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	return &dto.CreateUserResponse{
		UserResponse: toUserResponse(user),
		TempPassword: tempPassword,
	}, nil
}

// checkUnique 校验用户名与邮箱唯一，excludeID 为当前用户（创建时为 0）
func (s *userService) checkUnique(ctx context.Context, excludeID uint, username string, email *string) error {
	if username != "" {
		existing, err := s.repo.User.GetByUsername(ctx, username)
		if err == nil && existing.ID != excludeID {
			return ErrUsernameExists
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询用户名失败", zap.Error(err))
			return err
		}
	}
	if email != nil {
		existing, err := s.repo.User.GetByEmail(ctx, *email)
		if err == nil && existing.ID != excludeID {
			return ErrEmailExists
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询邮箱失败", zap.Error(err))
			return err
		}
	}
	return nil
}

// ────────────────────── 查询 ──────────────────────

func (s *userService) GetByID(ctx context.Context, id uint) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	filter := repository.UserFilter{
		Department: req.Department,
		Keyword:    req.Keyword,
	}
	if req.Role != "" {
		role, ok := model.ParseRole(req.Role)
		if !ok {
			return nil, 0, ErrInvalidRole.WithDetail("%s", req.Role)
		}
		filter.Role = role
	}

	users, total, err := s.repo.User.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询用户列表失败", zap.Error(err))
		return nil, 0, err
	}
	return toUserResponses(users), total, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, id uint, req *dto.UpdateUserRequest, callerID uint, callerRole model.Role) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.Role != nil {
		role, ok := model.ParseRole(*req.Role)
		if !ok {
			return nil, ErrInvalidRole.WithDetail("%s", *req.Role)
		}
		if role != user.Role {
			if id == callerID {
				return nil, ErrUserSelfRoleChange
			}
			if (role == model.RoleSuperAdmin || user.Role == model.RoleSuperAdmin) && callerRole != model.RoleSuperAdmin {
				return nil, ErrSuperAdminAssignment
			}
		}
		user.Role = role
	}

	username := ""
	if req.Username != nil {
		username = strings.TrimSpace(*req.Username)
	}
	var email *string
	if req.Email != nil {
		email = optionalString(*req.Email)
	}
	if err := s.checkUnique(ctx, id, username, email); err != nil {
		return nil, err
	}

	if username != "" {
		user.Username = username
	}
	if req.Email != nil {
		user.Email = email
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Department != nil {
		user.Department = strings.TrimSpace(*req.Department)
	}

	if err := s.repo.User.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameExists
		}
		s.logger.Error("更新用户失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, id uint, callerID uint) error {
	if id == callerID {
		return ErrUserSelfDelete
	}

	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.Role == model.RoleSuperAdmin {
		return ErrSuperAdminDelete
	}

	led, err := s.repo.ServiceUnit.CountLedBy(ctx, id)
	if err != nil {
		return err
	}
	if led > 0 {
		return ErrUserIsUnitLeader
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.ServiceUnit.DeleteMembershipOf(ctx, id); err != nil {
			return err
		}
		return tx.User.Delete(ctx, id)
	})
	if err != nil {
		s.logger.Error("删除用户失败", zap.Uint("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("删除用户", zap.Uint("id", id), zap.Uint("operator", callerID))
	return nil
}

// ────────────────────── ResetPassword ──────────────────────

func (s *userService) ResetPassword(ctx context.Context, id uint, req *dto.ResetPasswordRequest) (*dto.ResetPasswordResponse, error) {
	if _, err := s.repo.User.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	password := req.Password
	resp := &dto.ResetPasswordResponse{}
	if password == "" {
		temp, err := generateTempPassword(10)
		if err != nil {
			s.logger.Error("生成临时密码失败", zap.Error(err))
			return nil, err
		}
		password = temp
		resp.TempPassword = temp
	}

	hash, err := hashPassword(password)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}
	if err := s.repo.User.UpdatePassword(ctx, id, hash); err != nil {
		s.logger.Error("重置密码失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	return resp, nil
}
