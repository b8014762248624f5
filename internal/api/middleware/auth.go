package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"req-pool/internal/dto"
	"req-pool/internal/model"
	"req-pool/pkg/jwt"
	"req-pool/pkg/redis"
	"req-pool/pkg/response"
)

// 上下文键
const (
	ContextUserID      = "user_id"
	ContextUsername    = "username"
	ContextRole        = "role"
	ContextTokenID     = "token_id"
	ContextTokenExpiry = "token_expiry"
	ContextUser        = "current_user"
)

// SessionLoader 按 Token 中的用户 id 加载当前用户，用户已删除时返回错误
type SessionLoader interface {
	LoadSessionUser(ctx context.Context, userID uint) (*dto.UserResponse, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Token，拒绝已登出的 Token 与已删除的用户
// rdb 为 nil 时跳过黑名单检查
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client, loader SessionLoader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			msg := "Token 无效"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token 已过期，请重新登录"
			}
			response.Unauthorized(c, 10002, msg)
			c.Abort()
			return
		}

		if rdb != nil && claims.ID != "" {
			revoked, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				// Redis 出错时降级放行
				logger.Warn("检查 Token 黑名单失败", zap.Error(err))
			} else if revoked {
				response.Unauthorized(c, 10002, "Token 已失效，请重新登录")
				c.Abort()
				return
			}
		}

		user, err := loader.LoadSessionUser(c.Request.Context(), claims.UserID)
		if err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}

		// 角色以数据库为准，Token 签发后的角色变更立即生效
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, user.Username)
		c.Set(ContextRole, model.Role(user.Role))
		c.Set(ContextTokenID, claims.ID)
		var expiry time.Time
		if claims.ExpiresAt != nil {
			expiry = claims.ExpiresAt.Time
		}
		c.Set(ContextTokenExpiry, expiry)
		c.Set(ContextUser, user)

		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(ContextRole)
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		userRole, _ := v.(model.Role)
		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}
