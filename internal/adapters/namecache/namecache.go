// Package namecache resolves platform ids to names through a bounded TTL LRU.
// One Cache is created per kind of id (users, guilds) and injected where needed.
package namecache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Defaults used when configuration leaves size or ttl unset.
const (
	DefaultSize = 2048
	DefaultTTL  = 30 * time.Minute
)

// Loader fetches the name for key from the source of truth.
type Loader func(ctx context.Context, key string) (string, error)

type entry struct {
	key       string
	name      string
	expiresAt time.Time
}

// Cache is a concurrency-safe TTL LRU with de-duplicated loads.
type Cache struct {
	mu    sync.Mutex
	size  int
	ttl   time.Duration
	items map[string]*list.Element
	order *list.List
	load  Loader
	group singleflight.Group
	now   func() time.Time
}

// New creates a cache holding at most size names for ttl each.
// PRE: load is non-nil
// POST: Non-positive size or ttl fall back to the defaults
func New(size int, ttl time.Duration, load Loader) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		size:  size,
		ttl:   ttl,
		items: make(map[string]*list.Element, size),
		order: list.New(),
		load:  load,
		now:   time.Now,
	}
}

// Get returns the cached name for key, loading it on a miss.
// Concurrent misses for the same key share one load. Failed loads are not cached.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	if name, ok := c.lookup(key); ok {
		return name, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		if name, ok := c.lookup(key); ok {
			return name, nil
		}
		name, err := c.load(context.WithoutCancel(ctx), key)
		if err != nil {
			return "", err
		}
		c.store(key, name)
		return name, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		name, ok := res.Val.(string)
		if !ok {
			return "", fmt.Errorf("namecache: unexpected result type %T", res.Val)
		}
		return name, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops key so the next Get reloads it.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// Len returns the number of cached names, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return "", false
	}
	e := elem.Value.(entry)
	if !e.expiresAt.After(c.now()) {
		c.remove(elem)
		return "", false
	}
	c.order.MoveToFront(elem)
	return e.name, true
}

func (c *Cache) store(key, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{key: key, name: name, expiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.items[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}
	c.items[key] = c.order.PushFront(e)
	for len(c.items) > c.size {
		c.remove(c.order.Back())
	}
}

func (c *Cache) remove(elem *list.Element) {
	delete(c.items, elem.Value.(entry).key)
	c.order.Remove(elem)
}
