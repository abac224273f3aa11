package kvstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore 进程内键值存储，互斥锁保证单写者
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	closed  bool
	now     func() time.Time
	events  *notifier
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
		events:  newNotifier(),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Entry{}, false, ErrClosed
	}
	e, ok := s.entries[key]
	if !ok {
		return Entry{Key: key}, false, nil
	}
	e.Value = cloneRaw(e.Value)
	return e, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value json.RawMessage) (Entry, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Entry{}, ErrClosed
	}
	e := s.write(key, value)
	s.mu.Unlock()

	s.notify(e)
	return e, nil
}

func (s *MemoryStore) CompareAndSet(_ context.Context, key string, value json.RawMessage, expectedRevision int64) (Entry, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Entry{}, ErrClosed
	}
	if s.entries[key].Revision != expectedRevision {
		s.mu.Unlock()
		return Entry{}, ErrOptimisticLock
	}
	e := s.write(key, value)
	s.mu.Unlock()

	s.notify(e)
	return e, nil
}

// write 调用方持有写锁
func (s *MemoryStore) write(key string, value json.RawMessage) Entry {
	e := Entry{
		Key:       key,
		Value:     cloneRaw(value),
		Revision:  s.entries[key].Revision + 1,
		UpdatedAt: s.now(),
	}
	s.entries[key] = e
	e.Value = cloneRaw(e.Value)
	return e
}

func (s *MemoryStore) notify(e Entry) {
	s.events.publish(Change{Key: e.Key, Value: e.Value, Revision: e.Revision, UpdatedAt: e.UpdatedAt})
}

func (s *MemoryStore) Subscribe(key string, fn Listener) func() {
	return s.events.subscribe(key, fn)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Keys 返回当前所有键（测试与导出使用）
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}
