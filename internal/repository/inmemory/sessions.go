package inmemory

import (
	"sync"
	"time"

	userdomain "threegen/internal/domain/user"
)

// InMemorySessionCache maps a token digest to the session it resolved to.
type InMemorySessionCache struct {
	mu    sync.RWMutex
	items map[string]sessionItem
	now   func() time.Time
}

type sessionItem struct {
	value     userdomain.Session
	expiresAt time.Time
}

func NewInMemorySessionCache() *InMemorySessionCache {
	return &InMemorySessionCache{
		items: make(map[string]sessionItem),
		now:   time.Now,
	}
}

func (c *InMemorySessionCache) Get(key string) (userdomain.Session, bool) {
	now := c.now()

	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return userdomain.Session{}, false
	}

	if !item.expiresAt.After(now) {
		c.mu.Lock()
		item, ok = c.items[key]
		if ok && !item.expiresAt.After(now) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return userdomain.Session{}, false
	}

	return item.value, true
}

func (c *InMemorySessionCache) Set(key string, session userdomain.Session, ttl time.Duration) {
	if ttl <= 0 {
		c.Delete(key)
		return
	}

	c.mu.Lock()
	c.items[key] = sessionItem{
		value:     session,
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
}

func (c *InMemorySessionCache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *InMemorySessionCache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]sessionItem)
	c.mu.Unlock()
}
