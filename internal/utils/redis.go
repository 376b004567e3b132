// 包 utils：外部依赖的连接与证书工具
package utils

import (
	"context"
	"log/slog"
	"time"

	"parcel-api/internal/config"

	"github.com/redis/go-redis/v9"
)

// OpenRedis：使用地址与密码打开 Redis 客户端
// 背景：保留直接传入参数的能力，用于测试（miniredis）与手工注入场景
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// OpenRedisFromConfig：按配置打开 Redis；未开启或 ping 失败时返回 nil，解析缓存退化为仅进程内
func OpenRedisFromConfig(ctx context.Context, cfg *config.Config, l *slog.Logger) *redis.Client {
	if !cfg.RedisEnabled {
		l.Info("redis_disabled")
		return nil
	}
	rc := OpenRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if rc == nil {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		l.Error("redis_ping_error", "addr", cfg.RedisAddr, "err", err)
		_ = rc.Close()
		return nil
	}
	l.Info("redis_ping_ok", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return rc
}
