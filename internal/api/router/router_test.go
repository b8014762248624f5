package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"req-pool/config"
	"req-pool/internal/api/handler"
	"req-pool/internal/model"
	"req-pool/internal/repository"
	"req-pool/internal/service"
	"req-pool/pkg/database"
	"req-pool/pkg/jwt"
	"req-pool/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

// newTestServer 基于临时 SQLite 组装完整的 HTTP 服务，不依赖 Redis
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zap.NewNop()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:      3000,
			CORS:      config.CORSConfig{AllowOrigins: []string{"*"}},
			RateLimit: config.RateLimitConfig{Limit: 100, Window: time.Minute},
		},
		Auth: config.AuthConfig{
			JWTSecret:       "router-test-secret-0123456789",
			TokenTTL:        time.Hour,
			DefaultPassword: "Rq123456",
			BootstrapAdmin:  config.BootstrapAdminConfig{Username: "admin", Password: "admin123", Name: "超级管理员"},
		},
		Upload: config.UploadConfig{MaxSize: 1 << 20, MaxImportRows: 100},
	}

	db, err := database.NewDB(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "router.db"),
	}, "error", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, database.RunMigrations(db, logger, model.All()...))

	repo := repository.NewRepository(db)
	jwtMgr := jwt.NewManager(&cfg.Auth)
	m := metrics.NewMetrics("req_pool_router_test")
	svc := service.NewService(cfg, repo, jwtMgr, nil, m, logger)
	require.NoError(t, svc.Auth.EnsureBootstrapAdmin(context.Background()))

	engine := Setup(cfg, handler.NewHandler(cfg, svc), Deps{
		JWT:     jwtMgr,
		Session: svc.Auth,
		DB:      repo,
		Metrics: m,
		Logger:  logger,
	})
	return &testServer{t: t, engine: engine}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	status, env := s.do(http.MethodPost, "/api/login", "", map[string]string{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, status, env.Message)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(s.t, data.Token)
	return data.Token
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "req_pool_router_test_http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/me", "/api/requirements", "/api/projects", "/api/dashboard", "/api/unassigned-users"} {
		status, env := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.NotEmpty(t, env.Message, path)
	}
}

func TestRequirementProjectFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", "admin123")

	// 创建需求
	status, env := s.do(http.MethodPost, "/api/requirements", token, map[string]string{
		"code": "REQ-001", "description": "会员登录", "requestor": "张三", "department": "产品部",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var reqItem struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reqItem))
	assert.Equal(t, string(model.RequirementPending), reqItem.Status)

	// 创建项目并关联
	status, env = s.do(http.MethodPost, "/api/projects", token, map[string]interface{}{
		"name": "会员系统", "requirement_ids": []uint{reqItem.ID},
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var project struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &project))
	assert.Equal(t, "PRJ-001", project.ID)

	// 需求状态同步
	status, env = s.do(http.MethodGet, fmt.Sprintf("/api/requirements/%d", reqItem.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	var synced struct {
		Status    string  `json:"status"`
		ProjectID *string `json:"project_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &synced))
	assert.Equal(t, string(model.RequirementInProject), synced.Status)
	require.NotNil(t, synced.ProjectID)
	assert.Equal(t, "PRJ-001", *synced.ProjectID)

	// 删除项目后回到待排期
	status, _ = s.do(http.MethodDelete, "/api/projects/PRJ-001", token, nil)
	require.Equal(t, http.StatusOK, status)
	_, env = s.do(http.MethodGet, fmt.Sprintf("/api/requirements/%d", reqItem.ID), token, nil)
	require.NoError(t, json.Unmarshal(env.Data, &synced))
	assert.Equal(t, string(model.RequirementPending), synced.Status)
	assert.Nil(t, synced.ProjectID)

	// 仪表盘
	status, env = s.do(http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, status)
	var stats struct {
		TotalRequirements int64 `json:"total_requirements"`
		TotalProjects     int64 `json:"total_projects"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.EqualValues(t, 1, stats.TotalRequirements)
	assert.EqualValues(t, 0, stats.TotalProjects)
}

func TestRoleRestrictions(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "admin123")

	status, env := s.do(http.MethodPost, "/api/users", admin, map[string]string{
		"username": "dev", "password": "devpass1", "role": "developer",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	dev := s.login("dev", "devpass1")

	// 只读接口可访问
	status, _ = s.do(http.MethodGet, "/api/requirements", dev, nil)
	assert.Equal(t, http.StatusOK, status)

	// 写接口与用户管理被拒绝
	status, _ = s.do(http.MethodPost, "/api/requirements", dev, map[string]string{
		"code": "REQ-9", "description": "x", "requestor": "y", "department": "z",
	})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(http.MethodGet, "/api/users", dev, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(http.MethodPost, "/api/service-units", dev, map[string]interface{}{"name": "A", "leader_id": 1})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestLogoutWithoutRedis(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", "admin123")

	status, _ := s.do(http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)
}
