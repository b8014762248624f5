package service

import (
	"context"

	"go.uber.org/zap"

	"req-pool/internal/dto"
	"req-pool/internal/model"
	"req-pool/internal/repository"
)

// DashboardService 仪表盘统计业务接口
type DashboardService interface {
	Stats(ctx context.Context) (*dto.DashboardResponse, error)
}

type dashboardService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewDashboardService 创建 DashboardService 实例
func NewDashboardService(repo *repository.Repository, logger *zap.Logger) DashboardService {
	return &dashboardService{repo: repo, logger: logger}
}

// Stats 汇总需求与项目总数及按状态分布，未出现的状态计 0
func (s *dashboardService) Stats(ctx context.Context) (*dto.DashboardResponse, error) {
	resp := &dto.DashboardResponse{
		RequirementsByStatus: make(map[string]int64, len(model.RequirementStatuses)),
		ProjectsByStatus:     make(map[string]int64, len(model.ProjectStatuses)),
	}
	for _, st := range model.RequirementStatuses {
		resp.RequirementsByStatus[string(st)] = 0
	}
	for _, st := range model.ProjectStatuses {
		resp.ProjectsByStatus[string(st)] = 0
	}

	var err error
	if resp.TotalRequirements, err = s.repo.Requirement.Count(ctx); err != nil {
		s.logger.Error("统计需求总数失败", zap.Error(err))
		return nil, err
	}
	if resp.TotalProjects, err = s.repo.Project.Count(ctx); err != nil {
		s.logger.Error("统计项目总数失败", zap.Error(err))
		return nil, err
	}

	reqCounts, err := s.repo.Requirement.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("统计需求状态分布失败", zap.Error(err))
		return nil, err
	}
	for _, c := range reqCounts {
		resp.RequirementsByStatus[c.Status] += c.Count
	}

	projCounts, err := s.repo.Project.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("统计项目状态分布失败", zap.Error(err))
		return nil, err
	}
	for _, c := range projCounts {
		resp.ProjectsByStatus[c.Status] += c.Count
	}

	return resp, nil
}
