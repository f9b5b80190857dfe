package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem[V any] struct {
	value    V
	expireAt time.Time
	access   time.Time
}

func (m *memoryItem[V]) expired(now time.Time) bool {
	return now.After(m.expireAt)
}

// MemoryCache implements Service using in-memory storage with LRU eviction.
type MemoryCache[V any] struct {
	data       map[string]*memoryItem[V]
	mutex      sync.Mutex
	maxSize    int
	defaultTTL time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
	now        func() time.Time
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache[V any](opts ...MemoryOption) *MemoryCache[V] {
	cfg := &MemoryConfig{
		MaxSize:         256,
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache[V]{
		data:       make(map[string]*memoryItem[V]),
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		stop:       make(chan struct{}),
		now:        time.Now,
	}
	if cfg.CleanupInterval > 0 {
		go mc.cleanupExpired(cfg.CleanupInterval)
	}
	return mc
}

func (mc *MemoryCache[V]) Set(_ context.Context, key string, value V, expiration time.Duration) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if _, exists := mc.data[key]; !exists && len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}
	if expiration <= 0 {
		expiration = mc.defaultTTL
	}
	now := mc.now()
	mc.data[key] = &memoryItem[V]{value: value, expireAt: now.Add(expiration), access: now}
	return nil
}

func (mc *MemoryCache[V]) Get(_ context.Context, key string) (V, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	var zero V
	now := mc.now()
	item, exists := mc.data[key]
	if !exists {
		return zero, ErrCacheMiss
	}
	if item.expired(now) {
		delete(mc.data, key)
		return zero, ErrCacheMiss
	}
	item.access = now
	return item.value, nil
}

func (mc *MemoryCache[V]) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

// Len reports the number of stored entries, expired ones included until swept.
func (mc *MemoryCache[V]) Len() int {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	return len(mc.data)
}

func (mc *MemoryCache[V]) evictLRU() {
	var (
		oldestKey  string
		oldestTime time.Time
	)
	for key, item := range mc.data {
		if oldestKey == "" || item.access.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.access
		}
	}
	if oldestKey != "" {
		delete(mc.data, oldestKey)
	}
}

func (mc *MemoryCache[V]) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-mc.stop:
			return
		case <-ticker.C:
			mc.mutex.Lock()
			now := mc.now()
			for key, item := range mc.data {
				if item.expired(now) {
					delete(mc.data, key)
				}
			}
			mc.mutex.Unlock()
		}
	}
}

// Close stops the cleanup loop.
func (mc *MemoryCache[V]) Close() error {
	mc.stopOnce.Do(func() { close(mc.stop) })
	return nil
}
