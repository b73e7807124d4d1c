package correlation

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nodal-works/ferret/backend/pkg/entity"
	"github.com/nodal-works/ferret/backend/pkg/logger"
)

// ExtractionCache memoizes per-record extraction results keyed by record ID.
// Records are immutable once ingested, so entries never need invalidation.
// Implementations must be safe for concurrent use.
type ExtractionCache interface {
	Get(ctx context.Context, recordID string) ([]entity.Entity, bool)
	Set(ctx context.Context, recordID string, entities []entity.Entity)
}

// MemoryCache is a process-local ExtractionCache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]entity.Entity
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]entity.Entity)}
}

func (c *MemoryCache) Get(_ context.Context, recordID string) ([]entity.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ents, ok := c.entries[recordID]
	return ents, ok
}

func (c *MemoryCache) Set(_ context.Context, recordID string, entities []entity.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[recordID] = entities
}

const redisCacheTTL = 24 * time.Hour

// RedisCache is an ExtractionCache shared across workers. A Redis failure is
// treated as a cache miss, never surfaced to the caller.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a Redis-backed cache. Keys are namespaced with prefix
// so multiple deployments can share an instance.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "extraction"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(recordID string) string {
	return c.prefix + ":" + recordID
}

func (c *RedisCache) Get(ctx context.Context, recordID string) ([]entity.Entity, bool) {
	raw, err := c.client.Get(ctx, c.key(recordID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Debug("[Correlation] Redis cache read failed", "err", err)
		}
		return nil, false
	}

	var ents []entity.Entity
	if err := json.Unmarshal(raw, &ents); err != nil {
		logger.Debug("[Correlation] Corrupt cache entry, dropping", "record_id", recordID)
		return nil, false
	}
	return ents, true
}

func (c *RedisCache) Set(ctx context.Context, recordID string, entities []entity.Entity) {
	raw, err := json.Marshal(entities)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(recordID), raw, redisCacheTTL).Err(); err != nil {
		logger.Debug("[Correlation] Redis cache write failed", "err", err)
	}
}
