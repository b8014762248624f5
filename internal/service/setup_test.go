package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"req-pool/config"
	"req-pool/internal/model"
	"req-pool/internal/repository"
	"req-pool/pkg/database"
	"req-pool/pkg/jwt"
	"req-pool/pkg/metrics"
)

func TestMain(m *testing.M) {
	passwordHashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// ── 测试辅助 ──

type testEnv struct {
	db      *gorm.DB
	cfg     *config.Config
	repo    *repository.Repository
	jwtMgr  *jwt.Manager
	metrics *metrics.Metrics
	svc     *Service
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "service-test-secret-0123456789",
			TokenTTL:        time.Hour,
			DefaultPassword: "Rq123456",
			BootstrapAdmin: config.BootstrapAdminConfig{
				Username: "admin",
				Password: "admin123",
				Name:     "超级管理员",
			},
		},
		Upload: config.UploadConfig{MaxSize: 1 << 20, MaxImportRows: 50},
	}
}

// newTestEnv 基于临时 SQLite 文件创建完整的 Service 聚合
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.NewDB(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}, "error", logger)
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := database.RunMigrations(db, logger, model.All()...); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}

	cfg := testConfig()
	repo := repository.NewRepository(db)
	jwtMgr := jwt.NewManager(&cfg.Auth)
	m := metrics.NewMetrics("req_pool_test")

	return &testEnv{
		db:      db,
		cfg:     cfg,
		repo:    repo,
		jwtMgr:  jwtMgr,
		metrics: m,
		svc:     NewService(cfg, repo, jwtMgr, nil, m, logger),
	}
}

func (e *testEnv) createUser(t *testing.T, username string, role model.Role) *model.User {
	t.Helper()
	hash, err := hashPassword("password123")
	if err != nil {
		t.Fatalf("哈希失败: %v", err)
	}
	email := username + "@example.com"
	u := &model.User{
		Username:     username,
		Email:        &email,
		Name:         username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := e.repo.User.Create(context.Background(), u); err != nil {
		t.Fatalf("创建用户 %s 失败: %v", username, err)
	}
	return u
}

func (e *testEnv) createRequirement(t *testing.T, code string) *model.Requirement {
	t.Helper()
	r := &model.Requirement{
		Code:        code,
		Description: "需求 " + code,
		Requestor:   "张三",
		Department:  "研发部",
		RequestDate: today(),
		Status:      model.RequirementPending,
	}
	if err := e.repo.Requirement.Create(context.Background(), r); err != nil {
		t.Fatalf("创建需求 %s 失败: %v", code, err)
	}
	return r
}

func (e *testEnv) mustRequirement(t *testing.T, id uint) *model.Requirement {
	t.Helper()
	r, err := e.repo.Requirement.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("查询需求 %d 失败: %v", id, err)
	}
	return r
}

func strPtr(s string) *string { return &s }
