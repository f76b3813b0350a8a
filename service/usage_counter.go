package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// UsageCounter counts events per key per UTC day.
type UsageCounter interface {
	Incr(ctx context.Context, key, day string) (int64, error)
}

// Day formats t as the UTC day bucket used by counters.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MemoryUsageCounter keeps only the current day's buckets.
type MemoryUsageCounter struct {
	mu     sync.Mutex
	day    string
	counts map[string]int64
}

func NewMemoryUsageCounter() *MemoryUsageCounter {
	return &MemoryUsageCounter{counts: make(map[string]int64)}
}

func (m *MemoryUsageCounter) Incr(_ context.Context, key, day string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if day != m.day {
		m.day = day
		m.counts = make(map[string]int64)
	}
	m.counts[key]++
	return m.counts[key], nil
}

type RedisUsageCounter struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisUsageCounter(rdb *redis.Client) *RedisUsageCounter {
	return &RedisUsageCounter{rdb: rdb, prefix: "tord:usage:", ttl: 48 * time.Hour}
}

func (r *RedisUsageCounter) Incr(ctx context.Context, key, day string) (int64, error) {
	k := r.prefix + day + ":" + key
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
