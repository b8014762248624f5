package handler

import (
	"req-pool/config"
	"req-pool/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth        *AuthHandler
	User        *UserHandler
	Requirement *RequirementHandler
	Project     *ProjectHandler
	ServiceUnit *ServiceUnitHandler
	Import      *ImportHandler
	Export      *ExportHandler
	Dashboard   *DashboardHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(svc.Auth),
		User:        NewUserHandler(svc.User),
		Requirement: NewRequirementHandler(svc.Requirement),
		Project:     NewProjectHandler(svc.Project),
		ServiceUnit: NewServiceUnitHandler(svc.ServiceUnit),
		Import:      NewImportHandler(svc.Import, cfg.Upload.MaxSize),
		Export:      NewExportHandler(svc.Export),
		Dashboard:   NewDashboardHandler(svc.Dashboard),
	}
}
