package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/geocoder89/quorahub/internal/domain/session"
)

// SessionStore is a read-through cache in front of another auth.SessionStore.
//
// Logouts are written to the store and then recorded in the cache as a
// logged-out entry that lives until the session expires. Reads only fill
// empty slots, so a read that raced with the logout cannot bring the active
// row back. When the cache cannot record a logout, this process stops
// trusting it for a while and reads from the store.
type SessionStore struct {
	inner    auth.SessionStore
	cache    SessionCache
	ttl      time.Duration
	now      func() time.Time
	observer LookupObserver

	mu            sync.Mutex
	distrustUntil time.Time
}

// LookupObserver counts cache lookups by result: hit, miss, error or bypass.
type LookupObserver interface {
	ObserveCacheLookup(result string)
}

type noopLookups struct{}

func (noopLookups) ObserveCacheLookup(string) {}

func NewSessionStore(inner auth.SessionStore, c SessionCache, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SessionStore{
		inner:    inner,
		cache:    c,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		observer: noopLookups{},
	}
}

// WithObserver reports lookup results, typically to Prometheus.
func (s *SessionStore) WithObserver(o LookupObserver) *SessionStore {
	if o != nil {
		s.observer = o
	}
	return s
}

// WithClock shares the session clock used by auth.Guard for expiry.
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *SessionStore) Create(ctx context.Context, sess session.Session) error {
	return s.inner.Create(ctx, sess)
}

func (s *SessionStore) FindByToken(ctx context.Context, token string) (session.Session, error) {
	if !s.trusted() {
		s.observer.ObserveCacheLookup("bypass")
		return s.inner.FindByToken(ctx, token)
	}

	cached, ok, err := s.cache.Get(ctx, token)
	switch {
	case err != nil:
		s.observer.ObserveCacheLookup("error")
		slog.WarnContext(ctx, "session_cache_get_failed", "err", err)
	case ok:
		s.observer.ObserveCacheLookup("hit")
		return cached, nil
	default:
		s.observer.ObserveCacheLookup("miss")
	}

	sess, err := s.inner.FindByToken(ctx, token)
	if err != nil {
		return session.Session{}, err
	}

	if sess.IsLoggedOut {
		err = s.revoke(ctx, sess)
	} else {
		err = s.cache.Fill(ctx, sess, s.fillTTL(sess))
	}
	if err != nil {
		slog.WarnContext(ctx, "session_cache_set_failed", "err", err)
	}

	return sess, nil
}

// MarkLoggedOut fails when the logout reached the store but not the cache.
// Calling it again is safe and repairs the cache entry.
func (s *SessionStore) MarkLoggedOut(ctx context.Context, token string, at time.Time) (session.Session, error) {
	sess, err := s.inner.MarkLoggedOut(ctx, token, at)
	if err != nil {
		return session.Session{}, err
	}

	if err := s.revoke(ctx, sess); err != nil {
		s.distrust()
		return session.Session{}, fmt.Errorf("record logout in session cache: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) InvalidateAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	n, err := s.inner.InvalidateAllForUser(ctx, userID, at)
	if err != nil {
		return 0, err
	}

	if err := s.EvictUser(ctx, userID); err != nil {
		slog.WarnContext(ctx, "session_cache_evict_user_failed", "user_id", userID, "err", err)
	}
	return n, nil
}

// EvictUser drops every cached session of the user. Account deletion calls it
// after commit; user rows are never cached, so a stale entry cannot resolve.
func (s *SessionStore) EvictUser(ctx context.Context, userID string) error {
	if err := s.cache.DeleteUser(ctx, userID); err != nil {
		s.distrust()
		return err
	}
	return nil
}

func (s *SessionStore) fillTTL(sess session.Session) time.Duration {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl > s.ttl {
		ttl = s.ttl
	}
	return ttl
}

// revoke keeps the logged-out entry until the session expires, after which
// Guard.Resolve reports expiry regardless of the cache.
func (s *SessionStore) revoke(ctx context.Context, sess session.Session) error {
	return s.cache.Revoke(ctx, sess, sess.ExpiresAt.Sub(s.now()))
}

func (s *SessionStore) trusted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.now().Before(s.distrustUntil)
}

// distrust bypasses the cache long enough for every entry written before the
// failure to expire. Fills are capped at ttl, so two ttl periods cover a fill
// that was already in flight.
func (s *SessionStore) distrust() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.distrustUntil = s.now().Add(2 * s.ttl)
}
