package service

import (
	"go.uber.org/zap"

	"req-pool/config"
	"req-pool/internal/repository"
	"req-pool/pkg/jwt"
	"req-pool/pkg/metrics"
	"req-pool/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth        AuthService
	User        UserService
	Requirement RequirementService
	Project     ProjectService
	ServiceUnit ServiceUnitService
	Import      ImportService
	Export      ExportService
	Dashboard   DashboardService
}

// NewService 创建 Service 聚合
// rdb 为 nil 时 Token 黑名单不可用
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	var blacklist TokenBlacklist
	if rdb != nil {
		blacklist = rdb
	}

	return &Service{
		Auth:        NewAuthService(cfg, repo, jwtMgr, blacklist, m, logger),
		User:        NewUserService(cfg, repo, logger),
		Requirement: NewRequirementService(repo, logger),
		Project:     NewProjectService(repo, m, logger),
		ServiceUnit: NewServiceUnitService(repo, logger),
		Import:      NewImportService(cfg, repo, m, logger),
		Export:      NewExportService(repo, logger),
		Dashboard:   NewDashboardService(repo, logger),
	}
}
