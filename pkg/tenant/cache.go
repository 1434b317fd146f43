package tenant

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const (
	// DefaultCacheSize bounds the identity cache.
	DefaultCacheSize = 1000
	// DefaultCacheTTL bounds how stale an identity may be served. Status
	// changes (suspension in particular) must propagate within this window.
	DefaultCacheTTL = 5 * time.Minute

	cleanupInterval = time.Minute
)

// CachedDirectory wraps a Directory with a bounded in-memory LRU+TTL
// cache keyed by subdomain, keeping registry lookups off the hot path.
// Lookup errors are not cached.
type CachedDirectory struct {
	directory Directory
	ttl       time.Duration
	maxSize   int

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = most recently used

	stop   chan struct{}
	done   chan struct{}
	closed bool
}

type cacheEntry struct {
	subdomain string
	identity  *Identity
	expiresAt time.Time
}

// CacheOption configures a CachedDirectory.
type CacheOption func(*CachedDirectory)

// WithCacheTTL sets how long an identity is served without re-lookup.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *CachedDirectory) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheSize bounds the number of cached identities.
func WithCacheSize(n int) CacheOption {
	return func(c *CachedDirectory) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// NewCachedDirectory wraps directory with caching. Call Close to stop the
// background expiry sweep.
func NewCachedDirectory(directory Directory, opts ...CacheOption) *CachedDirectory {
	if directory == nil {
		panic("tenant: directory cannot be nil")
	}

	c := &CachedDirectory{
		directory: directory,
		ttl:       DefaultCacheTTL,
		maxSize:   DefaultCacheSize,
		items:     make(map[string]*list.Element),
		order:     list.New(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupLoop()
	return c
}

// LookupBySubdomain serves from cache when fresh, falling back to the
// wrapped directory.
func (c *CachedDirectory) LookupBySubdomain(ctx context.Context, subdomain string) (*Identity, error) {
	if identity, ok := c.get(subdomain); ok {
		return identity, nil
	}

	identity, err := c.directory.LookupBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}

	c.put(subdomain, identity)
	return identity, nil
}

// Invalidate drops a cached identity, forcing the next lookup through to
// the registry. Used when provisioning signals a change.
func (c *CachedDirectory) Invalidate(subdomain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[subdomain]; ok {
		c.removeLocked(el)
	}
}

// Close stops the background sweep.
func (c *CachedDirectory) Close() error {
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

func (c *CachedDirectory) get(subdomain string) (*Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[subdomain]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeLocked(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return entry.identity, true
}

func (c *CachedDirectory) put(subdomain string, identity *Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[subdomain]; ok {
		entry := el.Value.(*cacheEntry)
		entry.identity = identity
		entry.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	if len(c.items) >= c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.removeLocked(oldest)
		}
	}

	el := c.order.PushFront(&cacheEntry{
		subdomain: subdomain,
		identity:  identity,
		expiresAt: time.Now().Add(c.ttl),
	})
	c.items[subdomain] = el
}

func (c *CachedDirectory) removeLocked(el *list.Element) {
	entry := el.Value.(*cacheEntry)
	c.order.Remove(el)
	delete(c.items, entry.subdomain)
}

func (c *CachedDirectory) cleanupLoop() {
	defer close(c.done)
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *CachedDirectory) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*cacheEntry).expiresAt) {
			c.removeLocked(el)
		}
		el = prev
	}
}
