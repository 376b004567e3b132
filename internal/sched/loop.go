package sched

import (
	"context"
	"sort"
	"sync"
	"time"
)

// 文档注释：事件循环
// 背景：每个地图会话一个循环协程，协调器的全部状态只在该协程上读写，无需额外加锁。
// 约束：
//   - Submit 供外部生产者（传输层读协程）使用，队列有界，满时阻塞形成背压；
//   - Post 永不阻塞：任务进入无界的延迟队列，循环在每个任务之后清空它（微任务语义），
//     因此循环协程向自身投递不会因为有界队列已满而卡死；
//   - 帧时钟仅在有待执行帧时运行，空闲时停表；Run 退出后投递的任务被丢弃。
type Loop struct {
	interval time.Duration
	tasks    chan func()
	kick     chan struct{}
	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	frames   map[FrameID]func()
	nextID   FrameID
	deferred []func()
	stopped  bool
}

var _ Scheduler = (*Loop)(nil)

// NewLoop：interval 为帧间隔（1s/帧率），buffer 为 Submit 队列容量
func NewLoop(interval time.Duration, buffer int) *Loop {
	if interval <= 0 {
		interval = time.Second / 60
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		interval: interval,
		tasks:    make(chan func(), buffer),
		kick:     make(chan struct{}, 1),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		frames:   make(map[FrameID]func()),
	}
}

// Run：阻塞执行直到 ctx 结束
func (l *Loop) Run(ctx context.Context) {
	defer l.stop()
	var ticker *time.Ticker
	var tick <-chan time.Time
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()
	for {
		l.runDeferred()
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		case <-l.wake:
		case <-l.kick:
			if ticker == nil {
				ticker = time.NewTicker(l.interval)
				tick = ticker.C
			}
		case <-tick:
			if l.runFrames() == 0 && l.pendingFrames() == 0 {
				ticker.Stop()
				ticker, tick = nil, nil
			}
		}
	}
}

func (l *Loop) stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.deferred = nil
		l.mu.Unlock()
		close(l.done)
	})
}

// Done：循环退出后关闭
func (l *Loop) Done() <-chan struct{} { return l.done }

// Submit：外部事件入队；队列满时阻塞，循环退出后丢弃。不得在循环协程上调用
func (l *Loop) Submit(fn func()) {
	select {
	case <-l.done:
	case l.tasks <- fn:
	}
}

// Post：排到当前任务之后执行；任意协程可调用，从不阻塞
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.deferred = append(l.deferred, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// runDeferred：执行延迟队列直到为空，包括执行期间新投递的任务
func (l *Loop) runDeferred() {
	for {
		l.mu.Lock()
		if len(l.deferred) == 0 {
			l.mu.Unlock()
			return
		}
		fns := l.deferred
		l.deferred = nil
		l.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
}

func (l *Loop) RequestFrame(fn func()) FrameID {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.frames[id] = fn
	l.mu.Unlock()
	select {
	case l.kick <- struct{}{}:
	default:
	}
	return id
}

func (l *Loop) CancelFrame(id FrameID) {
	l.mu.Lock()
	delete(l.frames, id)
	l.mu.Unlock()
}

// runFrames：执行本帧开始时已登记的请求，按请求顺序；帧内新登记的请求留到下一帧
func (l *Loop) runFrames() int {
	fns := takeFrames(&l.mu, l.frames)
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

func (l *Loop) pendingFrames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames)
}

func takeFrames(mu *sync.Mutex, frames map[FrameID]func()) []func() {
	mu.Lock()
	defer mu.Unlock()
	ids := make([]FrameID, 0, len(frames))
	for id := range frames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, frames[id])
		delete(frames, id)
	}
	return fns
}
