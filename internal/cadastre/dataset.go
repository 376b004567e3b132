package cadastre

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"parcel-api/internal/logger"
	"parcel-api/internal/metrics"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrDatasetLoad：读取或解析地籍文件失败；不缓存，下次调用重试
	ErrDatasetLoad = errors.New("cadastre: dataset load failed")
	// ErrNotLoaded：调用方要求已加载快照但当前尚未加载
	ErrNotLoaded = errors.New("cadastre: dataset not loaded")
)

// 文档注释：地块数据集（进程/会话级单例，懒加载）
// 背景：地籍文件体积大且静态，整个进程只需读取一次；悬停与点击在首次事件时触发加载。
// 约束：
//   - 已加载时直接返回缓存快照，不做任何 I/O；
//   - 并发的首次加载合并为一次读取（singleflight），所有等待者拿到同一结果；
//   - 失败不留哨兵，下一次调用重新加载；
//   - 加载本身使用独立超时，不受单个调用方 ctx 取消的影响。
type Dataset struct {
	src     Source
	timeout time.Duration
	log     *slog.Logger

	group singleflight.Group
	cur   atomic.Pointer[Collection]
	epoch atomic.Uint64
}

// Option：数据集可选参数
type Option func(*Dataset)

// WithLoadTimeout：单次加载的超时
func WithLoadTimeout(d time.Duration) Option {
	return func(ds *Dataset) {
		if d > 0 {
			ds.timeout = d
		}
	}
}

// WithLogger：替换默认日志器
func WithLogger(l *slog.Logger) Option {
	return func(ds *Dataset) {
		if l != nil {
			ds.log = l
		}
	}
}

func NewDataset(src Source, opts ...Option) *Dataset {
	ds := &Dataset{src: src, timeout: 30 * time.Second, log: logger.L()}
	for _, o := range opts {
		o(ds)
	}
	return ds
}

// EnsureLoaded：保证数据集已加载并返回快照
// 背景：ctx 只约束本调用方的等待；调用方放弃等待时共享加载继续进行，结果仍会被缓存。
func (d *Dataset) EnsureLoaded(ctx context.Context) (*Collection, error) {
	if c := d.cur.Load(); c != nil {
		return c, nil
	}
	ch := d.group.DoChan("load", func() (any, error) {
		// 上一轮加载可能恰好在检查与 DoChan 之间完成
		if c := d.cur.Load(); c != nil {
			return c, nil
		}
		return d.load()
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Collection), nil
	}
}

func (d *Dataset) load() (*Collection, error) {
	epoch := d.epoch.Load()
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	t0 := time.Now()
	d.log.Debug("dataset_load_begin", "source", d.src.String())
	data, err := d.src.Fetch(ctx)
	if err != nil {
		return nil, d.fail(err)
	}
	c, err := Parse(data, d.src.String())
	if err != nil {
		return nil, d.fail(err)
	}
	// 加载期间发生过 Reset：结果照常返回给等待者，但不写入缓存
	if d.epoch.Load() == epoch {
		d.cur.Store(c)
	}
	ms := time.Since(t0).Milliseconds()
	metrics.DatasetLoadsTotal.WithLabelValues("ok").Inc()
	metrics.DatasetLoadDurationMs.Observe(float64(ms))
	metrics.DatasetFeatures.Set(float64(c.Len()))
	d.log.Info("dataset_load_ok", "source", c.Source, "features", c.Len(), "skipped", c.Skipped, "ms", ms)
	return c, nil
}

func (d *Dataset) fail(err error) error {
	metrics.DatasetLoadsTotal.WithLabelValues("error").Inc()
	d.log.Error("dataset_load_error", "source", d.src.String(), "err", err)
	return fmt.Errorf("%w: %w", ErrDatasetLoad, err)
}

// 文档注释：重新读取数据源并替换快照
// 背景：定时刷新与管理端重载使用；与 Reset 不同，刷新期间旧快照持续可用，不出现未加载窗口。
// 约束：失败时保留旧快照并返回 ErrDatasetLoad；并发的 Reload 合并为一次读取。
func (d *Dataset) Reload(ctx context.Context) (*Collection, error) {
	ch := d.group.DoChan("reload", func() (any, error) {
		// 作废进行中的首次加载，避免其较旧的结果覆盖本次快照
		d.epoch.Add(1)
		return d.load()
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Collection), nil
	}
}

// Snapshot：当前快照，未加载返回 nil；不阻塞
func (d *Dataset) Snapshot() *Collection { return d.cur.Load() }

// Loaded：是否已有可用快照
func (d *Dataset) Loaded() bool { return d.cur.Load() != nil }

// Reset：丢弃缓存快照，下次访问重新加载（测试与管理端热重载）
func (d *Dataset) Reset() {
	d.epoch.Add(1)
	d.cur.Store(nil)
	d.group.Forget("load")
	d.log.Info("dataset_reset", "source", d.src.String())
}

// Source：数据源描述
func (d *Dataset) Source() string { return d.src.String() }
