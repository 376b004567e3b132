// 包 session：地图会话，把一份悬停/选中状态、一个事件循环与一个指针协调器绑在一起
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"parcel-api/internal/cadastre"
	"parcel-api/internal/logger"
	"parcel-api/internal/metrics"
	"parcel-api/internal/overlay"
	"parcel-api/internal/pointer"
	"parcel-api/internal/sched"

	"github.com/google/uuid"
)

// 文档注释：单个地图会话
// 背景：会话自身就是协调器挂载的地图表面；传输层从任意协程调用 Move/Click/Leave，
// 事件被投递到会话循环后再交给协调器，保证协调器状态只在循环协程上变化。
// 约束：Close 幂等；关闭时先在循环上执行 Detach（清空悬停、保留选中）再停止循环。
type Session struct {
	ID    string
	State *overlay.State

	loop     *sched.Loop
	coord    *pointer.Coordinator
	handlers pointer.Handlers
	cancel   context.CancelFunc
	log      *slog.Logger

	openedAt  time.Time
	closeOnce sync.Once
}

var _ pointer.Surface = (*Session)(nil)

// Open：创建会话并启动循环；onPicked 在循环协程上调用，可为 nil
func Open(ds *cadastre.Dataset, frameInterval time.Duration, onPicked func(pointer.SelectedParcel), log *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:       uuid.NewString(),
		State:    overlay.NewState(),
		loop:     sched.NewLoop(frameInterval, 256),
		cancel:   cancel,
		openedAt: time.Now(),
	}
	if log == nil {
		log = logger.L()
	}
	s.log = log.With("session", s.ID)
	s.coord = pointer.New(ds, s.State, s.loop, onPicked, pointer.WithLogger(s.log))
	go s.loop.Run(ctx)
	s.loop.Post(func() {
		if err := s.coord.Attach(s); err != nil {
			s.log.Error("session_attach_error", "err", err)
		}
	})
	metrics.ActiveSessions.Inc()
	s.log.Debug("session_opened")
	return s
}

// Subscribe：供协调器挂载；在循环协程上调用
func (s *Session) Subscribe(h pointer.Handlers) func() {
	s.handlers = h
	return func() { s.handlers = pointer.Handlers{} }
}

// Move：指针移动（任意协程，循环协程除外；队列满时阻塞）
func (s *Session) Move(p pointer.LatLng) {
	s.loop.Submit(func() {
		if s.handlers.Move != nil {
			s.handlers.Move(p)
		}
	})
}

// Click：指针点击（同 Move）
func (s *Session) Click(p pointer.LatLng) {
	s.loop.Submit(func() {
		if s.handlers.Click != nil {
			s.handlers.Click(p)
		}
	})
}

// Leave：指针离开地图（同 Move）
func (s *Session) Leave() {
	s.loop.Submit(func() {
		if s.handlers.Leave != nil {
			s.handlers.Leave()
		}
	})
}

// Close：卸载协调器并停止循环，阻塞到循环退出
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		detached := make(chan struct{})
		s.loop.Post(func() {
			s.coord.Detach()
			close(detached)
		})
		select {
		case <-detached:
		case <-s.loop.Done():
		}
		s.cancel()
		<-s.loop.Done()
		metrics.ActiveSessions.Dec()
		s.log.Debug("session_closed", "duration_ms", time.Since(s.openedAt).Milliseconds())
	})
}
