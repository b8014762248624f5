package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"req-pool/config"
	"req-pool/internal/model"
	"req-pool/internal/repository"
	"req-pool/pkg/database"
)

func newSQLiteRepo(t *testing.T) *repository.Repository {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.NewDB(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "repo.db"),
	}, "error", logger)
	if err != nil {
		t.Fatalf("打开 SQLite 失败: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := database.RunMigrations(db, logger, model.All()...); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return repository.NewRepository(db)
}

func seedRequirement(t *testing.T, repo *repository.Repository, code, dept string) *model.Requirement {
	t.Helper()
	req := &model.Requirement{
		Code:        code,
		Description: "描述 " + code,
		Requestor:   "张三",
		Department:  dept,
		RequestDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local),
		Status:      model.RequirementPending,
	}
	if err := repo.Requirement.Create(context.Background(), req); err != nil {
		t.Fatalf("创建需求 %s 失败: %v", code, err)
	}
	return req
}

func seedUser(t *testing.T, repo *repository.Repository, username string) *model.User {
	t.Helper()
	email := username + "@example.com"
	user := &model.User{
		Username:     username,
		Email:        &email,
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleDeveloper,
	}
	if err := repo.User.Create(context.Background(), user); err != nil {
		t.Fatalf("创建用户 %s 失败: %v", username, err)
	}
	return user
}

func TestProjectRepo_MaxSequence(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	if n, err := repo.Project.MaxSequence(ctx); err != nil || n != 0 {
		t.Fatalf("空表 MaxSequence 应为 0，实际=%d err=%v", n, err)
	}

	for _, id := range []string{"PRJ-001", "PRJ-007", "PRJ-abc"} {
		p := &model.Project{ID: id, Name: id, CreateTime: time.Now(), Status: model.ProjectNew}
		if err := repo.Project.Create(ctx, p); err != nil {
			t.Fatalf("创建项目 %s 失败: %v", id, err)
		}
	}

	n, err := repo.Project.MaxSequence(ctx)
	if err != nil {
		t.Fatalf("MaxSequence 失败: %v", err)
	}
	if n != 7 {
		t.Errorf("期望 7，实际=%d", n)
	}
}

func TestRequirementRepo_AssignAndDetach(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	r1 := seedRequirement(t, repo, "REQ-1", "产品部")
	r2 := seedRequirement(t, repo, "REQ-2", "产品部")
	seedRequirement(t, repo, "REQ-3", "运营部")

	p := &model.Project{ID: "PRJ-001", Name: "会员", CreateTime: time.Now(), Status: model.ProjectNew}
	if err := repo.Project.Create(ctx, p); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	n, err := repo.Requirement.AssignToProject(ctx, []uint{r1.ID, r2.ID}, p.ID, p.Status)
	if err != nil || n != 2 {
		t.Fatalf("AssignToProject 期望 2 行，实际=%d err=%v", n, err)
	}

	n, err = repo.Requirement.SetProjectStatus(ctx, p.ID, model.ProjectImplementation)
	if err != nil || n != 2 {
		t.Fatalf("SetProjectStatus 期望 2 行，实际=%d err=%v", n, err)
	}

	got, _ := repo.Requirement.GetByID(ctx, r1.ID)
	if got.Status != model.RequirementInProject || got.ProjectID == nil || *got.ProjectStatus != model.ProjectImplementation {
		t.Errorf("排期字段不符: %+v", got)
	}

	scheduled, err := repo.Requirement.ListAll(ctx, repository.RequirementFilter{ProjectID: p.ID})
	if err != nil || len(scheduled) != 2 {
		t.Fatalf("按项目过滤期望 2 条，实际=%d err=%v", len(scheduled), err)
	}

	n, err = repo.Requirement.DetachFromProject(ctx, p.ID)
	if err != nil || n != 2 {
		t.Fatalf("DetachFromProject 期望 2 行，实际=%d err=%v", n, err)
	}
	got, _ = repo.Requirement.GetByID(ctx, r2.ID)
	if got.Status != model.RequirementPending || got.ProjectID != nil || got.ProjectStatus != nil {
		t.Errorf("解除关联后应回到待排期: %+v", got)
	}
}

func TestRequirementRepo_FilterAndCodes(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	seedRequirement(t, repo, "REQ-LOGIN", "产品部")
	seedRequirement(t, repo, "REQ-PAY", "财务部")
	seedRequirement(t, repo, "REQ-LOGOUT", "财务部")

	list, total, err := repo.Requirement.List(ctx, repository.RequirementFilter{Department: "财务部", Keyword: "LOG"}, 0, 10)
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].Code != "REQ-LOGOUT" {
		t.Errorf("部门与关键字应同时生效，实际 total=%d list=%+v", total, list)
	}

	hits, err := repo.Requirement.ExistingCodes(ctx, []string{"REQ-PAY", "REQ-NEW", "REQ-LOGIN"})
	if err != nil {
		t.Fatalf("ExistingCodes 失败: %v", err)
	}
	if len(hits) != 2 || hits[0] != "REQ-LOGIN" || hits[1] != "REQ-PAY" {
		t.Errorf("ExistingCodes 结果不符: %v", hits)
	}

	counts, err := repo.Requirement.CountByStatus(ctx)
	if err != nil || len(counts) != 1 || counts[0].Count != 3 {
		t.Errorf("CountByStatus 结果不符: %+v err=%v", counts, err)
	}
}

func TestServiceUnitRepo_Memberships(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	leader := seedUser(t, repo, "leader")
	a := seedUser(t, repo, "alice")
	b := seedUser(t, repo, "bob")
	c := seedUser(t, repo, "carol")

	unit := &model.ServiceUnit{Name: "A组", LeaderID: leader.ID}
	if err := repo.ServiceUnit.Create(ctx, unit); err != nil {
		t.Fatalf("创建服务单元失败: %v", err)
	}
	if err := repo.ServiceUnit.AddMembers(ctx, unit.ID, []uint{a.ID, b.ID}); err != nil {
		t.Fatalf("AddMembers 失败: %v", err)
	}

	taken, err := repo.ServiceUnit.FindMemberships(ctx, []uint{a.ID, c.ID}, 0)
	if err != nil || len(taken) != 1 || taken[0].UserID != a.ID {
		t.Fatalf("FindMemberships 结果不符: %+v err=%v", taken, err)
	}
	if taken, _ := repo.ServiceUnit.FindMemberships(ctx, []uint{a.ID}, unit.ID); len(taken) != 0 {
		t.Errorf("排除本单元后不应有冲突: %+v", taken)
	}

	unassigned, err := repo.User.ListUnassigned(ctx)
	if err != nil {
		t.Fatalf("ListUnassigned 失败: %v", err)
	}
	if len(unassigned) != 2 || unassigned[0].ID != leader.ID || unassigned[1].ID != c.ID {
		t.Errorf("未分配用户应为 leader 与 carol，实际=%+v", unassigned)
	}

	if n, _ := repo.ServiceUnit.CountLedBy(ctx, leader.ID); n != 1 {
		t.Errorf("CountLedBy 期望 1，实际=%d", n)
	}

	if err := repo.ServiceUnit.DeleteMembershipOf(ctx, a.ID); err != nil {
		t.Fatalf("DeleteMembershipOf 失败: %v", err)
	}
	got, _ := repo.ServiceUnit.GetByID(ctx, unit.ID)
	if len(got.Members) != 1 || got.Members[0].UserID != b.ID {
		t.Errorf("剩余成员应为 bob，实际=%+v", got.Members)
	}
}

func TestUserRepo_Existing(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	seedUser(t, repo, "alice")

	names, err := repo.User.ExistingUsernames(ctx, []string{"alice", "bob"})
	if err != nil || !names["alice"] || names["bob"] {
		t.Errorf("ExistingUsernames 结果不符: %v err=%v", names, err)
	}
	emails, err := repo.User.ExistingEmails(ctx, []string{"alice@example.com"})
	if err != nil || !emails["alice@example.com"] {
		t.Errorf("ExistingEmails 结果不符: %v err=%v", emails, err)
	}
}

func TestRepository_TransactionRollback(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		p := &model.Project{ID: "PRJ-001", Name: "回滚", CreateTime: time.Now(), Status: model.ProjectNew}
		if err := tx.Project.Create(ctx, p); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("期望返回 fn 的错误，实际=%v", err)
	}
	if n, _ := repo.Project.Count(ctx); n != 0 {
		t.Errorf("回滚后不应有项目，实际=%d", n)
	}
}

func TestRepository_Ping(t *testing.T) {
	repo := newSQLiteRepo(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping 失败: %v", err)
	}
}
