// Package authcache caches successful authentications for a short, fixed
// window so hot tokens skip the Argon2id sweep. The TTL only bounds
// staleness as a backstop; rotation clears the cache explicitly and never
// waits for expiry.
package authcache

import (
	"sync"
	"time"
)

// DefaultTTL bounds how long a cached authentication may outlive the hash
// verification that produced it.
const DefaultTTL = time.Hour

// Identity is the resolved result of a successful authentication.
type Identity struct {
	UserID string
	Role   string
}

type entry struct {
	identity  Identity
	expiresAt time.Time
}

// Cache maps presented token strings to their resolved identities.
// Entries are evicted lazily on read and in bulk on Clear.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// New creates a cache with the given TTL; ttl <= 0 selects DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the identity cached for a token. An entry whose expiry is at
// or before now is treated as a miss and evicted.
func (c *Cache) Get(token string) (Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[token]
	if !ok {
		return Identity{}, false
	}
	if !e.expiresAt.After(c.now()) {
		delete(c.entries, token)
		return Identity{}, false
	}
	return e.identity, true
}

// Set records a successful authentication for a token.
func (c *Cache) Set(token string, identity Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = entry{identity: identity, expiresAt: c.now().Add(c.ttl)}
}

// Clear drops every entry. Called on rotation and reload; a full clear is
// safer than selective invalidation because entries are keyed by opaque
// token string, not by user.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len reports the number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
