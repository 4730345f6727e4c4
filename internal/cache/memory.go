package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache 进程内缓存，用于单实例部署和测试
type MemoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache cleanupInterval 为过期条目的清理周期
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m *MemoryCache) Get(_ context.Context, shortKey string) (string, bool, error) {
	v, ok := m.c.Get(shortKey)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (m *MemoryCache) Set(_ context.Context, shortKey, targetURL string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(shortKey, targetURL, ttl)
	return nil
}

func (m *MemoryCache) Invalidate(_ context.Context, shortKey string) error {
	m.c.Delete(shortKey)
	return nil
}

// Len 当前条目数（含已过期未清理的）
func (m *MemoryCache) Len() int {
	return m.c.ItemCount()
}
