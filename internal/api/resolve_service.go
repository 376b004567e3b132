package api

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"parcel-api/internal/cadastre"
	"parcel-api/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// 文档注释：对外坐标解析服务
// 背景：HTTP 解析接口先查 Redis 热点缓存（跨进程共享），再走进程内定位器（LRU + 扫描）。
// 参数：loc 必填；rc 可为 nil（仅进程内缓存）；ttl<=0 时使用一小时。
// 约束：Redis 只保存地块序号，键含数据集内容摘要与坐标原文，文件变化后旧键自然失效；
// Redis 故障只记录日志，不影响解析结果。
type ResolveService struct {
	loc   *cadastre.Locator
	rc    *redis.Client
	ttl   time.Duration
	scope string
	log   *slog.Logger
}

func NewResolveService(loc *cadastre.Locator, rc *redis.Client, ttl time.Duration, scope string, log *slog.Logger) *ResolveService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if scope == "" {
		scope = "parcel"
	}
	return &ResolveService{loc: loc, rc: rc, ttl: ttl, scope: scope, log: log}
}

// Resolve：返回包含 (lat, lon) 的首个地块；未命中返回 (nil, nil)
func (s *ResolveService) Resolve(ctx context.Context, lat, lon float64) (*cadastre.Feature, error) {
	snap, err := s.loc.Dataset().EnsureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	key := s.key(snap, lat, lon)
	if s.rc != nil {
		v, err := s.rc.Get(ctx, key).Result()
		switch {
		case err == nil:
			if idx, perr := strconv.Atoi(v); perr == nil && idx < snap.Len() {
				metrics.LocatorCacheTotal.WithLabelValues("redis", "hit").Inc()
				if idx < 0 {
					return nil, nil
				}
				return &snap.Features[idx], nil
			}
			s.log.Warn("resolve_cache_corrupt", "key", key, "value", v)
		case errors.Is(err, redis.Nil):
		default:
			s.log.Warn("resolve_cache_get_error", "err", err)
		}
		metrics.LocatorCacheTotal.WithLabelValues("redis", "miss").Inc()
	}
	f, err := s.loc.Locate(ctx, lon, lat)
	if err != nil {
		return nil, err
	}
	if s.rc != nil {
		idx := -1
		if f != nil {
			idx = f.Index
		}
		if err := s.rc.Set(ctx, key, strconv.Itoa(idx), s.ttl).Err(); err != nil {
			s.log.Warn("resolve_cache_set_error", "err", err)
		}
	}
	return f, nil
}

func (s *ResolveService) key(c *cadastre.Collection, lat, lon float64) string {
	return s.scope + ":resolve:" + c.Digest + ":" +
		strconv.FormatFloat(lat, 'g', -1, 64) + ":" + strconv.FormatFloat(lon, 'g', -1, 64)
}
