package cadastre

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"time"

	"parcel-api/internal/logger"
	"parcel-api/internal/metrics"

	"github.com/paulmach/orb"
)

// 文档注释：带缓存的地块定位器（供 HTTP 等传输层使用）
// 背景：地图会话的悬停路径直接调用 Resolve；对外接口的请求则先查进程内 LRU 再扫描。
// 约束：缓存键使用坐标的精确位模式与快照加载时间，不做任何量化，缓存结果与直接扫描完全一致。
type Locator struct {
	ds    *Dataset
	cache *LRU
	log   *slog.Logger
}

func NewLocator(ds *Dataset, cacheSize int, ttl time.Duration) *Locator {
	return &Locator{ds: ds, cache: NewLRU(cacheSize, ttl), log: logger.L()}
}

// Dataset：底层数据集
func (l *Locator) Dataset() *Dataset { return l.ds }

// Locate：返回包含 (lon, lat) 的首个地块；未命中返回 (nil, nil)
// 约束：数据集加载失败时返回 ErrDatasetLoad 包装错误，由调用方决定响应码
func (l *Locator) Locate(ctx context.Context, lon, lat float64) (*Feature, error) {
	c, err := l.ds.EnsureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	key := cacheKey(c, lon, lat)
	if idx, ok := l.cache.Get(key); ok {
		metrics.LocatorCacheTotal.WithLabelValues("local", "hit").Inc()
		if idx < 0 || idx >= c.Len() {
			return nil, nil
		}
		return &c.Features[idx], nil
	}
	metrics.LocatorCacheTotal.WithLabelValues("local", "miss").Inc()
	t0 := time.Now()
	f, ok := Resolve(c, orb.Point{lon, lat})
	metrics.ResolveDurationUs.WithLabelValues("locator").Observe(float64(time.Since(t0).Microseconds()))
	if !ok {
		metrics.ResolvesTotal.WithLabelValues("locator", "miss").Inc()
		l.cache.Set(key, -1)
		l.log.Debug("locate_miss", "lat", lat, "lon", lon)
		return nil, nil
	}
	metrics.ResolvesTotal.WithLabelValues("locator", "hit").Inc()
	l.cache.Set(key, f.Index)
	l.log.Debug("locate_hit", "lat", lat, "lon", lon, "index", f.Index)
	return f, nil
}

// Purge：清空定位缓存
func (l *Locator) Purge() { l.cache.Purge() }

func cacheKey(c *Collection, lon, lat float64) string {
	b := make([]byte, 0, 64)
	b = strconv.AppendInt(b, c.LoadedAt.UnixNano(), 36)
	b = append(b, ':')
	b = strconv.AppendUint(b, math.Float64bits(lon), 36)
	b = append(b, ':')
	b = strconv.AppendUint(b, math.Float64bits(lat), 36)
	return string(b)
}
