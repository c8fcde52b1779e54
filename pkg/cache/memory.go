package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// memoryItem stores a cached value with expiration.
type memoryItem struct {
	value    []byte
	expireAt time.Time
}

func (m *memoryItem) expired() bool {
	return time.Now().After(m.expireAt)
}

// MemoryCache implements Service using in-process storage. Values are stored
// JSON-encoded so Get semantics match the Redis implementation.
type MemoryCache struct {
	data          map[string]*memoryItem
	access        map[string]time.Time
	mutex         sync.RWMutex
	maxSize       int
	cleanupTicker *time.Ticker
	done          chan struct{}
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:          make(map[string]*memoryItem),
		access:        make(map[string]time.Time),
		maxSize:       cfg.MaxSize,
		cleanupTicker: time.NewTicker(cfg.CleanupInterval),
		done:          make(chan struct{}),
	}

	go mc.cleanupExpired()
	return mc
}

func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if len(c.data) >= c.maxSize {
		c.evictOldest()
	}

	c.data[key] = &memoryItem{value: data, expireAt: time.Now().Add(expiration)}
	c.access[key] = time.Now()
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mutex.RLock()
	item, ok := c.data[key]
	c.mutex.RUnlock()

	if !ok || item.expired() {
		return ErrCacheMiss
	}

	c.mutex.Lock()
	c.access[key] = time.Now()
	c.mutex.Unlock()

	return json.Unmarshal(item.value, dest)
}

func (c *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, key := range keys {
		delete(c.data, key)
		delete(c.access, key)
	}
	return nil
}

func (c *MemoryCache) Close() error {
	c.cleanupTicker.Stop()
	close(c.done)
	return nil
}

// evictOldest removes the least recently accessed entry; called with lock held.
func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, t := range c.access {
		if oldestKey == "" || t.Before(oldest) {
			oldestKey = key
			oldest = t
		}
	}
	if oldestKey != "" {
		delete(c.data, oldestKey)
		delete(c.access, oldestKey)
	}
}

func (c *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-c.done:
			return
		case <-c.cleanupTicker.C:
			c.mutex.Lock()
			for key, item := range c.data {
				if item.expired() {
					delete(c.data, key)
					delete(c.access, key)
				}
			}
			c.mutex.Unlock()
		}
	}
}
