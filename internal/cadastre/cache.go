package cadastre

import (
	"container/list"
	"sync"
	"time"
)

// 文档注释：进程内 LRU（地块下标缓存）
// 背景：HTTP 查询存在大量重复坐标（同一地块的反复点击、前端重试），命中缓存可跳过整表扫描。
// 约束：值为地块下标，-1 表示确认未命中；键由调用方构造且必须能区分快照版本。
type LRU struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
	now  func() time.Time
}

type lruEntry struct {
	k   string
	idx int
	exp time.Time
}

func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU{
		cap:  capacity,
		ttl:  ttl,
		lst:  list.New(),
		dict: make(map[string]*list.Element),
		now:  time.Now,
	}
}

func (c *LRU) Get(k string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.dict[k]
	if !ok {
		return 0, false
	}
	it := e.Value.(lruEntry)
	if c.ttl > 0 && !c.now().Before(it.exp) {
		c.lst.Remove(e)
		delete(c.dict, k)
		return 0, false
	}
	c.lst.MoveToFront(e)
	return it.idx, true
}

func (c *LRU) Set(k string, idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := lruEntry{k: k, idx: idx, exp: c.now().Add(c.ttl)}
	if e, ok := c.dict[k]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(lruEntry).k)
		c.lst.Remove(back)
	}
}

func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}

// Purge：清空全部条目（数据集重载时调用）
func (c *LRU) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lst.Init()
	c.dict = make(map[string]*list.Element)
}
