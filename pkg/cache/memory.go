package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value    []byte
	expireAt time.Time // zero means no expiry
	access   time.Time
	lock     bool
}

// MemoryCache implements Service in process, evicting the least recently used
// plain key when full. Held locks only leave through Unlock or their TTL.
// Expired entries are dropped lazily on access or when room is needed.
type MemoryCache struct {
	mu      sync.Mutex
	data    map[string]*memoryItem
	maxSize int
	now     func() time.Time
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := defaultMemoryConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &MemoryCache{
		data:    make(map[string]*memoryItem),
		maxSize: cfg.MaxSize,
		now:     cfg.Now,
	}
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.data[key]; !ok && len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}
	mc.data[key] = mc.newItem(data, expiration)
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	item, ok := mc.lookup(key)
	if ok {
		item.access = mc.now()
	}
	mc.mu.Unlock()

	if !ok {
		return ErrCacheMiss
	}
	return decode(item.value, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		if _, ok := mc.lookup(key); ok {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.lookup(key); ok {
		return false, nil
	}
	if len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}
	item := mc.newItem([]byte("locked"), ttl)
	item.lock = true
	mc.data[key] = item
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

func (mc *MemoryCache) Close() error { return nil }

// lookup returns a live item, deleting it if expired. Callers hold mc.mu.
func (mc *MemoryCache) lookup(key string) (*memoryItem, bool) {
	item, ok := mc.data[key]
	if !ok {
		return nil, false
	}
	if !item.expireAt.IsZero() && !mc.now().Before(item.expireAt) {
		delete(mc.data, key)
		return nil, false
	}
	return item, true
}

func (mc *MemoryCache) newItem(data []byte, expiration time.Duration) *memoryItem {
	now := mc.now()
	item := &memoryItem{value: data, access: now}
	if expiration > 0 {
		item.expireAt = now.Add(expiration)
	}
	return item
}

// evictLRU drops every expired item, or failing that the least recently used
// unlocked one. Callers hold mc.mu.
func (mc *MemoryCache) evictLRU() {
	now := mc.now()
	expired := 0
	for key, item := range mc.data {
		if !item.expireAt.IsZero() && !now.Before(item.expireAt) {
			delete(mc.data, key)
			expired++
		}
	}
	if expired > 0 {
		return
	}

	var oldestKey string
	var oldest time.Time
	for key, item := range mc.data {
		if item.lock {
			continue
		}
		if oldestKey == "" || item.access.Before(oldest) {
			oldestKey = key
			oldest = item.access
		}
	}
	if oldestKey != "" {
		delete(mc.data, oldestKey)
	}
}
