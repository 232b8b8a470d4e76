package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DirectoryCache is a read-through shadow of the tenant directory.
// Implementations never return errors: any backend failure is a miss.
type DirectoryCache interface {
	// Lookup returns the cached identity for the tenant id.
	Lookup(ctx context.Context, id uuid.UUID) (Identity, bool)

	// Put stores the identity for ttl. Entries are only invalidated by TTL.
	Put(ctx context.Context, identity Identity, ttl time.Duration)

	// Delete removes a cached identity.
	Delete(ctx context.Context, id uuid.UUID)
}

// DefaultCacheSize is the default maximum number of identities kept by MemoryCache.
const DefaultCacheSize = 1000

// MemoryCache is an in-process DirectoryCache with TTL expiry and LRU eviction.
// It suits single-node deployments and tests; multi-node setups use RedisCache.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[uuid.UUID]cacheItem
	lru     []uuid.UUID // least recently used first
	maxSize int
	now     func() time.Time
	stop    chan struct{}
	done    chan struct{}
	closed  bool
}

type cacheItem struct {
	identity  Identity
	expiresAt time.Time
}

// NewMemoryCache creates an in-memory cache with the default size and a cleanup goroutine.
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithSize(DefaultCacheSize)
}

// NewMemoryCacheWithSize creates an in-memory cache holding at most maxSize identities.
func NewMemoryCacheWithSize(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}

	c := &MemoryCache{
		items:   make(map[uuid.UUID]cacheItem),
		lru:     make([]uuid.UUID, 0, maxSize),
		maxSize: maxSize,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// Lookup returns the identity if present and not expired.
func (c *MemoryCache) Lookup(_ context.Context, id uuid.UUID) (Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return Identity{}, false
	}

	if c.now().After(item.expiresAt) {
		delete(c.items, id)
		c.removeLRU(id)
		return Identity{}, false
	}

	c.touch(id)
	return item.identity, true
}

// Put stores the identity, evicting the least recently used entry when full.
func (c *MemoryCache) Put(_ context.Context, identity Identity, ttl time.Duration) {
	if identity.IsZero() || ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[identity.ID]; !exists && len(c.items) >= c.maxSize && len(c.lru) > 0 {
		evict := c.lru[0]
		delete(c.items, evict)
		c.lru = c.lru[1:]
	}

	c.items[identity.ID] = cacheItem{
		identity:  identity,
		expiresAt: c.now().Add(ttl),
	}
	c.touch(identity.ID)
}

// Delete removes the identity from the cache.
func (c *MemoryCache) Delete(_ context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, id)
	c.removeLRU(id)
}

// Len returns the number of cached identities, including expired ones not yet swept.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, id)
			c.removeLRU(id)
		}
	}
}

// touch moves the id to the most recently used end.
func (c *MemoryCache) touch(id uuid.UUID) {
	c.removeLRU(id)
	c.lru = append(c.lru, id)
}

func (c *MemoryCache) removeLRU(id uuid.UUID) {
	for i, k := range c.lru {
		if k == id {
			c.lru = append(c.lru[:i], c.lru[i+1:]...)
			return
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stop)
	<-c.done
	return nil
}

// NoOpCache disables directory caching; every lookup goes to the directory.
type NoOpCache struct{}

func (NoOpCache) Lookup(context.Context, uuid.UUID) (Identity, bool) {
	return Identity{}, false
}

func (NoOpCache) Put(context.Context, Identity, time.Duration) {}

func (NoOpCache) Delete(context.Context, uuid.UUID) {}
