package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores the most recent snapshot for a key.
// Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*Snapshot, error)
	Set(ctx context.Context, key string, snap *Snapshot, ttl time.Duration) error
}

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = (*MemoryCache)(nil)
)

type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "prices:"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Snapshot, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decoding cached snapshot: %w", err)
	}
	return &snap, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, snap *Snapshot, ttl time.Duration) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

type memoryEntry struct {
	snap      Snapshot
	expiresAt time.Time
}

// MemoryCache is the single-process fallback used when Redis is not configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Snapshot, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, nil
	}
	snap := entry.snap
	return &snap, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, snap *Snapshot, ttl time.Duration) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{snap: *snap, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}
