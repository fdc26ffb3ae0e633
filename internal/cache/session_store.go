package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// SessionStore 会话 JSON 存储，Redis 不可用时退化为进程内存
type SessionStore struct {
	namespace string
	ttl       time.Duration

	mu     sync.Mutex
	memory map[string]memoryEntry
	now    func() time.Time
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// NewSessionStore 创建会话存储
func NewSessionStore(namespace string, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{
		namespace: namespace,
		ttl:       ttl,
		memory:    make(map[string]memoryEntry),
		now:       time.Now,
	}
}

func (s *SessionStore) key(id string) string {
	return s.namespace + ":" + id
}

// Load 读取会话，不存在时返回 false
func (s *SessionStore) Load(ctx context.Context, id string, dest interface{}) (bool, error) {
	if Enabled() {
		return GetJSON(ctx, s.key(id), dest)
	}
	s.mu.Lock()
	entry, ok := s.memory[id]
	if ok && s.now().After(entry.expiresAt) {
		delete(s.memory, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Save 写入会话并刷新过期时间
func (s *SessionStore) Save(ctx context.Context, id string, value interface{}) error {
	if Enabled() {
		return SetJSON(ctx, s.key(id), value, s.ttl)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.memory[id] = memoryEntry{payload: payload, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Delete 删除会话
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if Enabled() {
		return Del(ctx, s.key(id))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memory, id)
	return nil
}

func (s *SessionStore) sweepLocked() {
	now := s.now()
	for id, entry := range s.memory {
		if now.After(entry.expiresAt) {
			delete(s.memory, id)
		}
	}
}
