package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 需要真实 Redis：REQPOOL_TEST_REDIS_ADDR=localhost:6379 go test ./pkg/redis/
func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("REQPOOL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("未设置 REQPOOL_TEST_REDIS_ADDR，跳过 Redis 测试")
	}

	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	c := NewClientFromRedis(rdb, zap.NewNop())
	if err := c.Ping(context.Background()); err != nil {
		t.Skipf("Redis 不可用: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBlacklist(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	jti := uuid.NewString()

	blocked, err := c.IsBlacklisted(ctx, jti)
	if err != nil || blocked {
		t.Fatalf("新 jti 不应在黑名单中: blocked=%v err=%v", blocked, err)
	}

	if err := c.BlacklistToken(ctx, jti, time.Minute); err != nil {
		t.Fatalf("BlacklistToken 失败: %v", err)
	}
	blocked, err = c.IsBlacklisted(ctx, jti)
	if err != nil || !blocked {
		t.Fatalf("jti 应在黑名单中: blocked=%v err=%v", blocked, err)
	}

	// 已过期的 token 不写入
	other := uuid.NewString()
	if err := c.BlacklistToken(ctx, other, 0); err != nil {
		t.Fatalf("BlacklistToken(ttl=0) 失败: %v", err)
	}
	if blocked, _ := c.IsBlacklisted(ctx, other); blocked {
		t.Error("ttl<=0 时不应写入黑名单")
	}
}

func TestCheckRateLimit(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "rate_limit:test:" + uuid.NewString()

	for i := 0; i < 3; i++ {
		ok, err := c.CheckRateLimit(ctx, key, 3, time.Minute)
		if err != nil {
			t.Fatalf("CheckRateLimit 失败: %v", err)
		}
		if !ok {
			t.Fatalf("第 %d 次请求应放行", i+1)
		}
	}

	ok, err := c.CheckRateLimit(ctx, key, 3, time.Minute)
	if err != nil {
		t.Fatalf("CheckRateLimit 失败: %v", err)
	}
	if ok {
		t.Error("超过上限的请求应被拒绝")
	}
}
