package store

import (
	"context"
	"sync"
	"time"
)

// Cache is a write-through session cache in front of a Store. Active
// sessions stay hot in memory; entries idle past the timeout are evicted by
// the janitor and reloaded from the store on next access.
type Cache struct {
	store       Store
	idleTimeout time.Duration

	mu      sync.RWMutex
	entries map[string]*cacheEntry
	onEvict func(sessionID string)
}

type cacheEntry struct {
	session    *Session
	lastAccess time.Time
}

func NewCache(store Store, idleTimeout time.Duration) *Cache {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Cache{
		store:       store,
		idleTimeout: idleTimeout,
		entries:     make(map[string]*cacheEntry),
	}
}

func (c *Cache) Save(ctx context.Context, s Session) error {
	if err := c.store.Save(ctx, s); err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[s.ID] = &cacheEntry{
		session:    cloneSession(&s),
		lastAccess: time.Now().UTC(),
	}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Get(ctx context.Context, id string) (Session, error) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		e.lastAccess = time.Now().UTC()
		s := *cloneSession(e.session)
		c.mu.Unlock()
		return s, nil
	}

	s, err := c.store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	c.mu.Lock()
	c.entries[id] = &cacheEntry{
		session:    cloneSession(&s),
		lastAccess: time.Now().UTC(),
	}
	c.mu.Unlock()
	return s, nil
}

// List always goes to the backing store so the dashboard sees every session,
// not only the hot ones.
func (c *Cache) List(ctx context.Context) ([]Session, error) {
	return c.store.List(ctx)
}

func (c *Cache) Close() error {
	return c.store.Close()
}

// OnEvict registers a callback invoked with the id of every session the
// janitor evicts, so callers can drop per-session state of their own. Set
// it before StartJanitor.
func (c *Cache) OnEvict(fn func(sessionID string)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// CachedCount reports how many sessions are currently held hot.
func (c *Cache) CachedCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartJanitor evicts idle entries on an interval until ctx is cancelled.
func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.evictIdle()
			}
		}
	}()
}

func (c *Cache) evictIdle() {
	now := time.Now().UTC()
	var evicted []string
	c.mu.Lock()
	for id, e := range c.entries {
		if now.Sub(e.lastAccess) >= c.idleTimeout {
			delete(c.entries, id)
			evicted = append(evicted, id)
		}
	}
	fn := c.onEvict
	c.mu.Unlock()

	if fn != nil {
		for _, id := range evicted {
			fn(id)
		}
	}
}
