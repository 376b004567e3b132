package sched

import "sync"

// 文档注释：手动推进的调度器
// 背景：测试需要确定性地控制"下一帧"与"下一个调度点"；Post 可来自任意协程，执行只发生在 Drain/Frame 中。
type Manual struct {
	mu     sync.Mutex
	queue  []func()
	frames map[FrameID]func()
	nextID FrameID
}

var _ Scheduler = (*Manual)(nil)

func NewManual() *Manual {
	return &Manual{frames: make(map[FrameID]func())}
}

func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
}

func (m *Manual) RequestFrame(fn func()) FrameID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.frames[m.nextID] = fn
	return m.nextID
}

func (m *Manual) CancelFrame(id FrameID) {
	m.mu.Lock()
	delete(m.frames, id)
	m.mu.Unlock()
}

// Drain：执行队列中的任务直到为空（包括执行期间新投递的任务），返回执行数
func (m *Manual) Drain() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		fn()
		n++
	}
}

// Frame：推进一帧，执行已登记的帧回调，随后 Drain；返回执行的帧回调数
func (m *Manual) Frame() int {
	fns := takeFrames(&m.mu, m.frames)
	for _, fn := range fns {
		fn()
	}
	m.Drain()
	return len(fns)
}

// PendingFrames：尚未执行的帧请求数
func (m *Manual) PendingFrames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// PendingTasks：尚未执行的任务数
func (m *Manual) PendingTasks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
