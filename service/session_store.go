package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SessionStore tracks live admin session ids.
type SessionStore interface {
	Put(ctx context.Context, id string, ttl time.Duration) error
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// MemorySessionStore is a TTL map for single-instance deployments. Run sweeps expired ids.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time
	now      func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]time.Time), now: time.Now}
}

func (m *MemorySessionStore) Put(_ context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = m.now().Add(ttl)
	return nil
}

func (m *MemorySessionStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.sessions[id]
	if !ok {
		return false, nil
	}
	if !m.now().Before(exp) {
		delete(m.sessions, id)
		return false, nil
	}
	return true, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Sweep drops expired sessions and reports how many were removed.
func (m *MemorySessionStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, exp := range m.sessions {
		if !now.Before(exp) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (m *MemorySessionStore) Run(ctx context.Context, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info("session sweeper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			log.Info("session sweeper stopping")
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				log.Debug("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

// RedisSessionStore shares sessions across instances; expiry is left to Redis.
type RedisSessionStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, prefix: "tord:admin:session:"}
}

func (r *RedisSessionStore) Put(ctx context.Context, id string, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.prefix+id, 1, ttl).Err()
}

func (r *RedisSessionStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.prefix+id).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, r.prefix+id).Err()
}
