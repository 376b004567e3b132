package session

import (
	"log/slog"
	"sync"
	"time"

	"parcel-api/internal/cadastre"
	"parcel-api/internal/pointer"
)

// Registry：进程内活跃会话表，所有会话共享同一份数据集
type Registry struct {
	ds       *cadastre.Dataset
	interval time.Duration
	log      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(ds *cadastre.Dataset, frameInterval time.Duration, log *slog.Logger) *Registry {
	return &Registry{ds: ds, interval: frameInterval, log: log, sessions: make(map[string]*Session)}
}

// Open：创建并登记会话
func (r *Registry) Open(onPicked func(pointer.SelectedParcel)) *Session {
	s := Open(r.ds, r.interval, onPicked, r.log)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Close：关闭并注销会话；未知 id 忽略
func (r *Registry) Close(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll：进程退出时关闭全部会话
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
