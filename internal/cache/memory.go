package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry 包装缓存数据和过期时间
type entry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is a process-local LRU with per-entry expiry.
// Expired entries are dropped lazily on Get and in bulk by PurgeExpired.
type MemoryStore struct {
	lruCache *lru.Cache[string, entry]
	now      func() time.Time
}

// NewMemoryStore holds at most size entries; the least recently used one is evicted first.
func NewMemoryStore(size int) (*MemoryStore, error) {
	l, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("create LRU cache: %w", err)
	}
	return &MemoryStore{lruCache: l, now: time.Now}, nil
}

func (c *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil, false, nil
	}

	if !c.now().Before(val.expiresAt) {
		c.lruCache.Remove(key)
		return nil, false, nil
	}

	return val.data, true, nil
}

func (c *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	// copy so later writes to the caller's buffer cannot change the cached page
	data := make([]byte, len(value))
	copy(data, value)

	c.lruCache.Add(key, entry{
		data:      data,
		expiresAt: c.now().Add(ttl),
	})
	return nil
}

func (c *MemoryStore) Clear(_ context.Context) error {
	c.lruCache.Purge()
	return nil
}

// Len counts entries, expired or not.
func (c *MemoryStore) Len() int {
	return c.lruCache.Len()
}

// PurgeExpired removes every expired entry and reports how many it dropped.
func (c *MemoryStore) PurgeExpired() int {
	now := c.now()
	removed := 0
	for _, key := range c.lruCache.Keys() {
		val, ok := c.lruCache.Peek(key)
		if ok && !now.Before(val.expiresAt) {
			c.lruCache.Remove(key)
			removed++
		}
	}
	return removed
}
