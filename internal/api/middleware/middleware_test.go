package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"req-pool/config"
	"req-pool/internal/dto"
	"req-pool/internal/model"
	pkgerrors "req-pool/pkg/errors"
	"req-pool/pkg/jwt"
	"req-pool/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "middleware-test-secret-0123456789"

// fakeLoader 内存中的会话用户
type fakeLoader struct {
	users map[uint]*dto.UserResponse
}

var errUserGone = pkgerrors.New(pkgerrors.KindUnauthorized, 11003, "用户不存在或已被删除")

func (f *fakeLoader) LoadSessionUser(_ context.Context, userID uint) (*dto.UserResponse, error) {
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, errUserGone
}

func newManager(ttl time.Duration) *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{JWTSecret: testSecret, TokenTTL: ttl})
}

func authEngine(mgr *jwt.Manager, loader SessionLoader, roles ...model.Role) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{JWTAuth(mgr, nil, loader, zap.NewNop())}
	if len(roles) > 0 {
		handlers = append(handlers, RoleAuth(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetUint(ContextUserID),
			"role":    c.MustGet(ContextRole),
		})
	})
	r.GET("/protected", handlers...)
	return r
}

func doGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	mgr := newManager(time.Hour)
	loader := &fakeLoader{users: map[uint]*dto.UserResponse{
		1: {ID: 1, Username: "alice", Role: string(model.RoleAdmin)},
	}}
	r := authEngine(mgr, loader)

	valid, _, _ := mgr.GenerateToken(1, "alice", "", string(model.RoleAdmin))
	ghost, _, _ := mgr.GenerateToken(2, "ghost", "", string(model.RoleAdmin))
	expired, _, _ := newManager(-time.Minute).GenerateToken(1, "alice", "", string(model.RoleAdmin))
	otherKey, _, _ := jwt.NewManager(&config.AuthConfig{JWTSecret: "another-secret-0123456789", TokenTTL: time.Hour}).
		GenerateToken(1, "alice", "", string(model.RoleAdmin))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"有效 Token", "Bearer " + valid, http.StatusOK},
		{"小写 bearer", "bearer " + valid, http.StatusOK},
		{"缺少认证头", "", http.StatusUnauthorized},
		{"格式错误", "Token " + valid, http.StatusUnauthorized},
		{"过期 Token", "Bearer " + expired, http.StatusUnauthorized},
		{"签名不符", "Bearer " + otherKey, http.StatusUnauthorized},
		{"用户已删除", "Bearer " + ghost, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(r, "/protected", tt.header)
			if w.Code != tt.status {
				t.Errorf("期望 %d，实际=%d body=%s", tt.status, w.Code, w.Body.String())
			}
			if w.Code != http.StatusOK && !strings.Contains(w.Body.String(), `"message"`) {
				t.Errorf("错误响应应包含 message: %s", w.Body.String())
			}
		})
	}
}

func TestJWTAuth_RoleComesFromStore(t *testing.T) {
	mgr := newManager(time.Hour)
	// Token 签发时为 admin，之后被降级为 developer
	loader := &fakeLoader{users: map[uint]*dto.UserResponse{
		1: {ID: 1, Username: "alice", Role: string(model.RoleDeveloper)},
	}}
	r := authEngine(mgr, loader, model.RoleAdmin)

	token, _, _ := mgr.GenerateToken(1, "alice", "", string(model.RoleAdmin))
	if w := doGet(r, "/protected", "Bearer "+token); w.Code != http.StatusForbidden {
		t.Errorf("降级后应返回 403，实际=%d", w.Code)
	}
}

func TestRoleAuth(t *testing.T) {
	mgr := newManager(time.Hour)
	loader := &fakeLoader{users: map[uint]*dto.UserResponse{
		1: {ID: 1, Username: "pm", Role: string(model.RoleProductManager)},
		2: {ID: 2, Username: "viewer", Role: string(model.RoleStakeholder)},
	}}
	r := authEngine(mgr, loader, model.RoleSuperAdmin, model.RoleAdmin, model.RoleProductManager)

	pm, _, _ := mgr.GenerateToken(1, "pm", "", string(model.RoleProductManager))
	viewer, _, _ := mgr.GenerateToken(2, "viewer", "", string(model.RoleStakeholder))

	if w := doGet(r, "/protected", "Bearer "+pm); w.Code != http.StatusOK {
		t.Errorf("产品经理应被放行，实际=%d", w.Code)
	}
	if w := doGet(r, "/protected", "Bearer "+viewer); w.Code != http.StatusForbidden {
		t.Errorf("干系人应被拒绝，实际=%d", w.Code)
	}

	// 未经过 JWTAuth 时视为未认证
	bare := gin.New()
	bare.GET("/x", RoleAuth(model.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	if w := doGet(bare, "/x", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("缺少角色信息应返回 401，实际=%d", w.Code)
	}
}

func TestRateLimit_LocalFallback(t *testing.T) {
	r := gin.New()
	r.POST("/api/login", RateLimit(nil, 2, time.Minute, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("期望 200,200,429，实际=%v", codes)
	}

	// 其他 IP 不受影响
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("其他 IP 应被放行，实际=%d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := doGet(r, "/", "")
	generated := w.Header().Get("X-Request-ID")
	if len(generated) != 36 || w.Body.String() != generated {
		t.Errorf("应生成 UUID 并写入上下文: header=%q body=%q", generated, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "trace-abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "trace-abc" {
		t.Errorf("应沿用请求头中的 ID，实际=%q", w.Header().Get("X-Request-ID"))
	}
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a very long value"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("超限请求应返回 413，实际=%d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("未超限请求应通过，实际=%d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("预检请求应返回 204，实际=%d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("允许的来源应回显: %q", w.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("未允许的来源不应返回 CORS 头")
	}
}

func TestMetricsAndRecovery(t *testing.T) {
	m := metrics.NewMetrics("mw_test")
	r := gin.New()
	r.Use(Recovery(zap.NewNop()), Metrics(m))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	doGet(r, "/items/1", "")
	doGet(r, "/items/2", "")
	w := doGet(r, "/boom", "")
	doGet(r, "/missing", "")

	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "服务器内部错误") {
		t.Errorf("panic 应转换为统一 500 响应: %d %s", w.Code, w.Body.String())
	}
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/items/:id", "200")); got != 2 {
		t.Errorf("应按路由模板聚合，实际=%v", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("未匹配路由应归入 unmatched，实际=%v", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequestsInFlight); got != 0 {
		t.Errorf("请求结束后并发数应归零，实际=%v", got)
	}
}
