package pipeline

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/steveyegge/taskgate/internal/types"
)

// cacheEntry holds a registry answer. A nil config is a cached "not found".
type cacheEntry struct {
	config   *types.TaskTypeConfig
	loadedAt time.Time
}

// taskTypeCache is a bounded TTL cache in front of the task-type registry.
// Negative entries share the positive TTL check but are stored with a
// backdated loadedAt so a registry write becomes visible sooner.
type taskTypeCache struct {
	entries     *lru.Cache[string, cacheEntry]
	ttl         time.Duration
	negativeTTL time.Duration
	now         func() time.Time
}

func newTaskTypeCache(size int, ttl, negativeTTL time.Duration, now func() time.Time) (*taskTypeCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if negativeTTL <= 0 || negativeTTL > ttl {
		negativeTTL = min(DefaultNegativeCacheTTL, ttl)
	}

	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create task type cache: %w", err)
	}
	return &taskTypeCache{
		entries:     entries,
		ttl:         ttl,
		negativeTTL: negativeTTL,
		now:         now,
	}, nil
}

// get returns the cached config and whether the entry was fresh. A fresh
// negative entry returns (nil, true).
func (c *taskTypeCache) get(id string) (*types.TaskTypeConfig, bool) {
	entry, ok := c.entries.Get(id)
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.loadedAt) >= c.ttl {
		c.entries.Remove(id)
		return nil, false
	}
	return entry.config, true
}

func (c *taskTypeCache) put(id string, cfg *types.TaskTypeConfig) {
	loadedAt := c.now()
	if cfg == nil {
		loadedAt = loadedAt.Add(-(c.ttl - c.negativeTTL))
	}
	c.entries.Add(id, cacheEntry{config: cfg, loadedAt: loadedAt})
}

func (c *taskTypeCache) flush() {
	c.entries.Purge()
}

func (c *taskTypeCache) len() int {
	return c.entries.Len()
}
