package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// DraftStore keeps unsaved editor content so it survives a restart or a
// closed browser tab.
type DraftStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

func draftKey(resource, documentID, adminID string) string {
	return fmt.Sprintf("editor:draft:%s:%s:%s", resource, documentID, adminID)
}

// RedisDraftStore backs drafts with Redis keys that expire after the TTL.
type RedisDraftStore struct {
	Client *redis.Client
}

func NewRedisDraftStore(client *redis.Client) *RedisDraftStore {
	return &RedisDraftStore{Client: client}
}

func (r *RedisDraftStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read draft %s: %w", key, err)
	}
	return data, true, nil
}

func (r *RedisDraftStore) Put(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := r.Client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write draft %s: %w", key, err)
	}
	return nil
}

func (r *RedisDraftStore) Delete(ctx context.Context, key string) error {
	if err := r.Client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", key, err)
	}
	return nil
}

type memoryDraft struct {
	data      []byte
	expiresAt time.Time
}

// MemoryDraftStore keeps drafts in process. Used when Redis is unavailable
// and in tests.
type MemoryDraftStore struct {
	mu     sync.Mutex
	drafts map[string]memoryDraft
	now    func() time.Time
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[string]memoryDraft), now: time.Now}
}

func (m *MemoryDraftStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[key]
	if !ok {
		return nil, false, nil
	}
	if !d.expiresAt.IsZero() && m.now().After(d.expiresAt) {
		delete(m.drafts, key)
		return nil, false, nil
	}
	return append([]byte(nil), d.data...), true, nil
}

func (m *MemoryDraftStore) Put(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := memoryDraft{data: append([]byte(nil), data...)}
	if ttl > 0 {
		d.expiresAt = m.now().Add(ttl)
	}
	m.drafts[key] = d
	return nil
}

func (m *MemoryDraftStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, key)
	return nil
}
