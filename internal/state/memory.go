package state

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/mvcwatch/internal/model"
)

// MemoryStore はプロセス内メモリのみのエフェメラルなStore実装。
// 1つの常駐プロセスでパイプラインを回し続ける運用向けで、
// プロセスの再起動で状態は失われる。
type MemoryStore struct {
	mu       sync.RWMutex
	notified map[model.IdentityKey]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// NewMemoryStore はMemoryStoreの新しいインスタンスを生成する。
func NewMemoryStore(cooldown time.Duration) *MemoryStore {
	return &MemoryStore{
		notified: make(map[model.IdentityKey]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// RecentlyNotified はStoreインターフェースを実装する。
func (s *MemoryStore) RecentlyNotified(_ context.Context, key model.IdentityKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	at, ok := s.notified[key]
	if !ok {
		return false, nil
	}
	return s.now().Sub(at) < s.cooldown, nil
}

// RecordNotification はStoreインターフェースを実装する。
func (s *MemoryStore) RecordNotification(_ context.Context, key model.IdentityKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notified[key] = s.now()
	return nil
}

// Count はStoreインターフェースを実装する。
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notified), nil
}
