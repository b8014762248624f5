package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"req-pool/config"
	"req-pool/internal/api/handler"
	"req-pool/internal/api/middleware"
	"req-pool/internal/model"
	"req-pool/pkg/jwt"
	"req-pool/pkg/metrics"
	"req-pool/pkg/redis"
)

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps 路由所需的外部依赖，Redis 与 Metrics 可为 nil
type Deps struct {
	JWT     *jwt.Manager
	Redis   *redis.Client
	Session middleware.SessionLoader
	DB      Pinger
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, d Deps) *gin.Engine {
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	// 上传文件另有更严格的限制，这里只兜底
	r.Use(middleware.BodyLimit(cfg.Upload.MaxSize + 1<<20))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := d.DB.Ping(ctx); err != nil {
			d.Logger.Warn("健康检查失败", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// 公开接口（限流）
		limited := middleware.RateLimit(d.Redis, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window, d.Logger)
		api.POST("/login", limited, h.Auth.Login)
		api.POST("/register", limited, h.Auth.Register)

		// 需要认证的路由
		authorized := api.Group("")
		authorized.Use(middleware.JWTAuth(d.JWT, d.Redis, d.Session, d.Logger))
		{
			authorized.POST("/logout", h.Auth.Logout)
			authorized.GET("/me", h.Auth.Me)
			authorized.PUT("/me", h.Auth.UpdateMe)
			authorized.PUT("/me/password", h.Auth.ChangePassword)

			editors := middleware.RoleAuth(model.RoleSuperAdmin, model.RoleAdmin, model.RoleProductManager)
			admins := middleware.RoleAuth(model.RoleSuperAdmin, model.RoleAdmin)

			// 需求池
			requirements := authorized.Group("/requirements")
			{
				requirements.GET("", h.Requirement.List)
				requirements.GET("/export", h.Export.Requirements)
				requirements.GET("/:id", h.Requirement.Get)
				requirements.POST("", editors, h.Requirement.Create)
				requirements.POST("/import", editors, h.Import.Requirements)
				requirements.PUT("/:id", editors, h.Requirement.Update)
				requirements.DELETE("/:id", editors, h.Requirement.Delete)
			}

			// 项目
			projects := authorized.Group("/projects")
			{
				projects.GET("", h.Project.List)
				projects.GET("/:id", h.Project.Get)
				projects.POST("", editors, h.Project.Create)
				projects.PUT("/:id", editors, h.Project.Update)
				projects.DELETE("/:id", editors, h.Project.Delete)
			}

			// 用户管理
			users := authorized.Group("/users", admins)
			{
				users.GET("", h.User.List)
				users.GET("/template", h.Export.UserTemplate)
				users.POST("/import", h.Import.Users)
				users.GET("/:id", h.User.Get)
				users.POST("", h.User.Create)
				users.PUT("/:id", h.User.Update)
				users.DELETE("/:id", h.User.Delete)
				users.POST("/:id/reset-password", h.User.ResetPassword)
			}

			// 服务单元
			units := authorized.Group("/service-units")
			{
				units.GET("", h.ServiceUnit.List)
				units.GET("/:id", h.ServiceUnit.Get)
				units.POST("", admins, h.ServiceUnit.Create)
				units.PUT("/:id", admins, h.ServiceUnit.Update)
				units.DELETE("/:id", admins, h.ServiceUnit.Delete)
			}
			authorized.GET("/unassigned-users", h.ServiceUnit.UnassignedUsers)

			authorized.GET("/dashboard", h.Dashboard.Stats)
		}
	}

	return r
}
