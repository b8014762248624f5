package service

import (
	"context"
	"testing"

	"req-pool/internal/dto"
	"req-pool/internal/model"
)

func TestDashboardService_ZeroFilledOnEmptyStore(t *testing.T) {
	env := newTestEnv(t)

	stats, err := env.svc.Dashboard.Stats(context.Background())
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if stats.TotalRequirements != 0 || stats.TotalProjects != 0 {
		t.Errorf("空库总数应为 0: %+v", stats)
	}
	if len(stats.RequirementsByStatus) != len(model.RequirementStatuses) {
		t.Errorf("需求分布应包含全部 %d 个状态，实际=%v", len(model.RequirementStatuses), stats.RequirementsByStatus)
	}
	if len(stats.ProjectsByStatus) != len(model.ProjectStatuses) {
		t.Errorf("项目分布应包含全部 %d 个状态，实际=%v", len(model.ProjectStatuses), stats.ProjectsByStatus)
	}
	for k, v := range stats.ProjectsByStatus {
		if v != 0 {
			t.Errorf("空库 %s 计数应为 0，实际=%d", k, v)
		}
	}
}

func TestDashboardService_Counts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r1 := env.createRequirement(t, "REQ-001")
	r2 := env.createRequirement(t, "REQ-002")
	env.createRequirement(t, "REQ-003")

	env.svc.Project.Create(ctx, &dto.CreateProjectRequest{Name: "一期", Status: "implementation", RequirementIDs: []uint{r1.ID, r2.ID}})
	env.svc.Project.Create(ctx, &dto.CreateProjectRequest{Name: "二期"})
	env.svc.Requirement.Update(ctx, r2.ID, &dto.UpdateRequirementRequest{Status: strPtr("completed")})

	stats, err := env.svc.Dashboard.Stats(ctx)
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}

	if stats.TotalRequirements != 3 || stats.TotalProjects != 2 {
		t.Errorf("总数不符: %+v", stats)
	}
	wantReq := map[string]int64{"pending_schedule": 1, "in_project": 1, "completed": 1}
	for k, v := range wantReq {
		if stats.RequirementsByStatus[k] != v {
			t.Errorf("需求 %s 期望 %d，实际=%d", k, v, stats.RequirementsByStatus[k])
		}
	}
	wantProj := map[string]int64{"new": 1, "implementation": 1, "requirement_design": 0, "requirement_handover": 0, "completed": 0}
	for k, v := range wantProj {
		got, ok := stats.ProjectsByStatus[k]
		if !ok || got != v {
			t.Errorf("项目 %s 期望 %d，实际=%d (存在=%v)", k, v, got, ok)
		}
	}
}
