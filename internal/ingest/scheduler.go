// 包 ingest：按固定间隔刷新地籍数据集，运行在服务进程内的后台协程
package ingest

import (
	"context"
	"log/slog"
	"time"

	"parcel-api/internal/cadastre"
)

// Reloader：可刷新的数据集（*cadastre.Dataset）
type Reloader interface {
	Reload(ctx context.Context) (*cadastre.Collection, error)
	Snapshot() *cadastre.Collection
}

// 文档注释：定时刷新地籍数据
// 背景：市政地籍导出不定期更新；远程数据源（PARCELS_URL）按间隔重新拉取，内容未变时只记录日志。
// 约束：every<=0 时不启动；错误由日志记录，任务继续调度；ctx 结束后退出。
// onSwap 在快照内容变化后调用（例如清空定位缓存），可为 nil。
func StartPeriodic(ctx context.Context, r Reloader, every time.Duration, onSwap func(*cadastre.Collection), l *slog.Logger) {
	if every <= 0 {
		l.Debug("dataset_refresh_disabled")
		return
	}
	go func() {
		t := time.NewTimer(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			RunOnce(ctx, r, onSwap, l)
			t.Reset(every)
		}
	}()
}

// RunOnce：执行一次刷新，返回快照内容是否变化
func RunOnce(ctx context.Context, r Reloader, onSwap func(*cadastre.Collection), l *slog.Logger) bool {
	prev := r.Snapshot()
	l.Info("dataset_refresh_begin")
	c, err := r.Reload(ctx)
	if err != nil {
		l.Error("dataset_refresh_error", "err", err)
		return false
	}
	if prev != nil && prev.Digest == c.Digest {
		l.Info("dataset_refresh_unchanged", "digest", c.Digest)
		return false
	}
	l.Info("dataset_refresh_done", "features", c.Len(), "digest", c.Digest)
	if onSwap != nil {
		onSwap(c)
	}
	return true
}
