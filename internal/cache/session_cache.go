package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/session"
)

// SessionCache holds recently read session rows keyed by token.
// A logged-out entry is final: Fill never replaces an entry that is already present.
type SessionCache interface {
	Get(ctx context.Context, token string) (session.Session, bool, error)
	// Fill caches a store read unless the token already has an entry.
	Fill(ctx context.Context, s session.Session, ttl time.Duration) error
	// Revoke records a logged-out session, replacing any entry for its token.
	Revoke(ctx context.Context, s session.Session, ttl time.Duration) error
	DeleteUser(ctx context.Context, userID string) error
}

// tokenKey hashes the token so raw bearer tokens never become cache keys.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// LocalSessionCache is the in-process SessionCache. It is only safe when a
// single process owns the session store, as with the memory backend.
type LocalSessionCache struct {
	entries *Cache[session.Session]

	mu     sync.Mutex
	byUser map[string]map[string]struct{} // {"user id": {"token key"}}
}

func NewLocalSessionCache(now func() time.Time) *LocalSessionCache {
	return &LocalSessionCache{
		entries: New[session.Session](now),
		byUser:  make(map[string]map[string]struct{}),
	}
}

func (c *LocalSessionCache) Get(ctx context.Context, token string) (session.Session, bool, error) {
	s, ok := c.entries.Get(tokenKey(token))
	return s, ok, nil
}

func (c *LocalSessionCache) Fill(ctx context.Context, s session.Session, ttl time.Duration) error {
	key := tokenKey(s.Token)
	if c.entries.Add(key, s, ttl) {
		c.index(s.UserID, key)
	}
	return nil
}

func (c *LocalSessionCache) Revoke(ctx context.Context, s session.Session, ttl time.Duration) error {
	key := tokenKey(s.Token)
	c.entries.Put(key, s, ttl)
	c.index(s.UserID, key)
	return nil
}

func (c *LocalSessionCache) index(userID, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, ok := c.byUser[userID]
	if !ok {
		keys = make(map[string]struct{})
		c.byUser[userID] = keys
	}
	keys[key] = struct{}{}
}

func (c *LocalSessionCache) DeleteUser(ctx context.Context, userID string) error {
	c.mu.Lock()
	keys := c.byUser[userID]
	delete(c.byUser, userID)
	c.mu.Unlock()

	for key := range keys {
		c.entries.Delete(key)
	}
	return nil
}
