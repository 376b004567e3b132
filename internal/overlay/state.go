package overlay

import (
	"sync"

	"parcel-api/internal/metrics"
)

// Slot：状态槽位
type Slot string

const (
	SlotHovered  Slot = "hovered"
	SlotSelected Slot = "selected"
)

// 文档注释：一次状态变化通知
// 背景：选中槽位的替换分两步（先清空、后写入）；Pending=true 的清空只是过渡态，
// 渲染层可以忽略，以保证每次点击只观察到一次有效变化、不会把 nil 当作最终状态。
type Change struct {
	Slot    Slot
	Overlay *Overlay
	Pending bool
}

// Reader：渲染层/观察者的只读视图
type Reader interface {
	Hovered() *Overlay
	Selected() *Overlay
	Subscribe(fn func(Change)) (unsubscribe func())
}

// Writer：唯一写者（指针事件协调器）使用的写接口
type Writer interface {
	SetHovered(o *Overlay) bool
	SetSelected(o *Overlay)
	ReplaceSelected(o *Overlay) (commit func())
	ClearAll()
}

// 文档注释：会话级悬停/选中状态
// 背景：同一地图会话的多个组件共享这份状态；写入只来自协调器，读者通过 Reader 订阅。
// 约束：变更在互斥锁内串行化；通知在释放锁后按变更顺序同步派发，回调中不得再写入本状态。
type State struct {
	mu       sync.Mutex
	hovered  *Overlay
	selected *Overlay
	gen      uint64

	subsMu sync.RWMutex
	subs   map[int]func(Change)
	nextID int
}

var (
	_ Reader = (*State)(nil)
	_ Writer = (*State)(nil)
)

func NewState() *State {
	return &State{subs: make(map[int]func(Change))}
}

func (s *State) Hovered() *Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hovered
}

func (s *State) Selected() *Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// SetHovered：去重写入悬停高亮，返回是否真的发生了变化
// 约束：与当前身份键相同（或两者皆为 nil）时为空操作，不发通知
func (s *State) SetHovered(o *Overlay) bool {
	s.mu.Lock()
	if sameIdentity(s.hovered, o) {
		s.mu.Unlock()
		return false
	}
	s.hovered = o
	s.mu.Unlock()
	s.emit(Change{Slot: SlotHovered, Overlay: o})
	return true
}

// SetSelected：直接替换选中高亮；同时作废任何未提交的 ReplaceSelected
func (s *State) SetSelected(o *Overlay) {
	s.mu.Lock()
	s.gen++
	s.selected = o
	s.mu.Unlock()
	s.emit(Change{Slot: SlotSelected, Overlay: o})
}

// 文档注释：清空并延迟写入选中高亮
// 背景：宿主渲染库对"看起来相同"的更新可能跳过重绘，因此先清空再在下一个调度点写入新值，
// 迫使观察者看到一个全新身份。
// 约束：返回的 commit 仅在此后没有更新的 ReplaceSelected/SetSelected/ClearAll 时生效，
// 过期的 commit 被丢弃（后点击者胜出）；commit 重复调用无副作用。
func (s *State) ReplaceSelected(o *Overlay) (commit func()) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.selected = nil
	s.mu.Unlock()
	s.emit(Change{Slot: SlotSelected, Overlay: nil, Pending: true})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gen != gen {
				s.mu.Unlock()
				return
			}
			s.gen++
			s.selected = o
			s.mu.Unlock()
			s.emit(Change{Slot: SlotSelected, Overlay: o})
		})
	}
}

// ClearAll：清空悬停与选中
func (s *State) ClearAll() {
	s.mu.Lock()
	s.gen++
	hadHover := s.hovered != nil
	hadSel := s.selected != nil
	s.hovered = nil
	s.selected = nil
	s.mu.Unlock()
	if hadHover {
		s.emit(Change{Slot: SlotHovered})
	}
	if hadSel {
		s.emit(Change{Slot: SlotSelected})
	}
}

// Subscribe：注册观察者，返回取消函数
func (s *State) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subsMu.Unlock()
	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *State) emit(c Change) {
	metrics.OverlayChangesTotal.WithLabelValues(string(c.Slot)).Inc()
	s.subsMu.RLock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}

func sameIdentity(a, b *Overlay) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key == b.Key
}
