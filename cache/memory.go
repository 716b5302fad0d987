package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/YKunlee/Financial-Research-Agent/jsonutil"
)

// InMemoryCache is a process-local JSONCache used when Redis is
// unavailable and in tests. Entries expire lazily on read.
type InMemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	expiresAt time.Time // zero means no expiry
	data      []byte
}

// NewInMemoryCache creates an empty in-memory cache.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{items: make(map[string]memoryItem)}
}

// GetJSON looks up key and unmarshals the stored document into dest.
func (c *InMemoryCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(item.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores value under key, replacing any previous document whole.
func (c *InMemoryCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := jsonutil.Marshal(value)
	if err != nil {
		return err
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = memoryItem{expiresAt: expiresAt, data: data}
	c.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory backend.
func (c *InMemoryCache) Close() error {
	return nil
}
