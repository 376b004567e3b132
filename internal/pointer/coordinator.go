// 包 pointer：指针事件协调器，把地图表面的移动/点击/离开事件转成地块解析与高亮状态更新
package pointer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"parcel-api/internal/cadastre"
	"parcel-api/internal/logger"
	"parcel-api/internal/metrics"
	"parcel-api/internal/overlay"
	"parcel-api/internal/sched"
)

// Phase：协调器生命周期
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseActive
	PhaseDetached
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseActive:
		return "active"
	case PhaseDetached:
		return "detached"
	}
	return "unknown"
}

var (
	ErrAttached = errors.New("pointer: coordinator already attached")
	ErrDetached = errors.New("pointer: coordinator detached")
)

// Option：协调器可选参数
type Option func(*Coordinator)

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// 文档注释：指针事件协调器
// 背景：悬停按帧节流，每帧只解析最新指针位置；点击不节流，命中后先清空选中再在下一个调度点写入，
// 并通知建房源流程；离开地图立即清空悬停。
// 约束：
//   - 除 New 外的全部方法（含 Surface 回调）必须在 sch 的协程上调用，内部状态不加锁；
//   - 数据集加载在后台协程等待，结果经 sch.Post 回到调度协程；
//   - 被更新点击取代的解析结果直接丢弃，不写入共享状态；
//   - 状态机 Idle → Active（首个事件触发加载）→ Detached（终态）。
type Coordinator struct {
	ds       *cadastre.Dataset
	st       overlay.Writer
	sch      sched.Scheduler
	onPicked func(SelectedParcel)
	log      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	phase       Phase
	unsubscribe func()
	latest      LatLng
	hasLatest   bool
	frame       sched.FrameID
	loading     bool
	clickSeq    uint64
}

// New：onPicked 为点击命中后的回调（建房源流程），可为 nil
func New(ds *cadastre.Dataset, st overlay.Writer, sch sched.Scheduler, onPicked func(SelectedParcel), opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{ds: ds, st: st, sch: sch, onPicked: onPicked, log: logger.L(), ctx: ctx, cancel: cancel}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Attach：订阅地图表面事件；每个协调器只能挂载一次
func (c *Coordinator) Attach(s Surface) error {
	if c.phase == PhaseDetached {
		return ErrDetached
	}
	if c.unsubscribe != nil {
		return ErrAttached
	}
	c.unsubscribe = s.Subscribe(Handlers{
		Move:  c.HandleMove,
		Click: c.HandleClick,
		Leave: c.HandleLeave,
	})
	return nil
}

// Phase：当前生命周期阶段
func (c *Coordinator) Phase() Phase { return c.phase }

// HandleMove：记录最新位置，若本帧尚未排程则请求下一帧
func (c *Coordinator) HandleMove(p LatLng) {
	if c.phase == PhaseDetached {
		return
	}
	c.activate()
	c.latest = p
	c.hasLatest = true
	c.requestFrame()
}

// HandleLeave：指针离开地图，立即清空悬停，不经过帧节流
func (c *Coordinator) HandleLeave() {
	if c.phase == PhaseDetached {
		return
	}
	c.hasLatest = false
	c.cancelFrame()
	c.st.SetHovered(nil)
}

// HandleClick：解析点击位置；数据集未就绪时后台等待加载，结果回到调度协程后再校验是否过期
func (c *Coordinator) HandleClick(p LatLng) {
	if c.phase == PhaseDetached {
		return
	}
	c.activate()
	c.clickSeq++
	seq := c.clickSeq
	if snap := c.ds.Snapshot(); snap != nil {
		c.pick(snap, p)
		return
	}
	ctx := c.ctx
	go func() {
		snap, err := c.ds.EnsureLoaded(ctx)
		c.sch.Post(func() {
			if c.phase == PhaseDetached {
				return
			}
			if seq != c.clickSeq {
				metrics.StaleResolutionsTotal.Inc()
				c.log.Debug("click_stale", "seq", seq, "latest", c.clickSeq)
				return
			}
			if err != nil {
				c.log.Warn("click_dataset_unavailable", "err", err)
				return
			}
			c.pick(snap, p)
		})
	}()
}

// Detach：退订事件、取消待执行帧、清空悬停（选中属于更长生命周期的会话，保留）
func (c *Coordinator) Detach() {
	if c.phase == PhaseDetached {
		return
	}
	c.phase = PhaseDetached
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.cancelFrame()
	c.cancel()
	c.hasLatest = false
	c.st.SetHovered(nil)
	c.log.Debug("coordinator_detached")
}

func (c *Coordinator) activate() {
	if c.phase != PhaseIdle {
		return
	}
	c.phase = PhaseActive
	if !c.ds.Loaded() {
		c.startLoad()
	}
}

func (c *Coordinator) requestFrame() {
	if c.frame != 0 {
		return
	}
	c.frame = c.sch.RequestFrame(c.onFrame)
}

func (c *Coordinator) cancelFrame() {
	if c.frame == 0 {
		return
	}
	c.sch.CancelFrame(c.frame)
	c.frame = 0
}

func (c *Coordinator) onFrame() {
	c.frame = 0
	if c.phase == PhaseDetached || !c.hasLatest {
		return
	}
	snap := c.ds.Snapshot()
	if snap == nil {
		// 未加载与已加载但为空同样视为未命中；加载完成后补一帧
		c.startLoad()
		return
	}
	f := resolve(snap, c.latest, "hover")
	if f == nil {
		c.st.SetHovered(nil)
		return
	}
	c.st.SetHovered(overlay.FromFeature(f))
}

func (c *Coordinator) startLoad() {
	if c.loading {
		return
	}
	c.loading = true
	ctx := c.ctx
	go func() {
		_, err := c.ds.EnsureLoaded(ctx)
		c.sch.Post(func() { c.loadDone(err) })
	}()
}

func (c *Coordinator) loadDone(err error) {
	c.loading = false
	if c.phase == PhaseDetached {
		return
	}
	if err != nil {
		// 失败不致命：下一个事件会再次触发加载
		c.log.Warn("hover_dataset_unavailable", "err", err)
		return
	}
	if c.hasLatest {
		c.requestFrame()
	}
}

func (c *Coordinator) pick(snap *cadastre.Collection, p LatLng) {
	f := resolve(snap, p, "click")
	if f == nil {
		c.log.Debug("click_miss", "lat", p.Lat, "lon", p.Lng)
		return
	}
	commit := c.st.ReplaceSelected(overlay.FromFeature(f))
	c.sch.Post(commit)
	metrics.ParcelsPickedTotal.Inc()
	c.log.Debug("parcel_picked", "index", f.Index, "lat", p.Lat, "lon", p.Lng)
	if c.onPicked != nil {
		c.onPicked(NewSelectedParcel(f, p))
	}
}

func resolve(snap *cadastre.Collection, p LatLng, origin string) *cadastre.Feature {
	t0 := time.Now()
	f, ok := cadastre.Resolve(snap, p.Point())
	metrics.ResolveDurationUs.WithLabelValues(origin).Observe(float64(time.Since(t0).Microseconds()))
	if !ok {
		metrics.ResolvesTotal.WithLabelValues(origin, "miss").Inc()
		return nil
	}
	metrics.ResolvesTotal.WithLabelValues(origin, "hit").Inc()
	return f
}
