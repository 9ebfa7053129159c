package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL is the fixed lifetime of a signed-in session.
const DefaultTTL = 8 * time.Hour

var ErrNotFound = errors.New("session not found")

type State string

const (
	StateActive    State = "active"
	StateLoggedOut State = "logged_out"
	StateExpired   State = "expired"
)

// Session binds an opaque token to a user for a fixed window.
// Rows are never deleted; sign-out and account removal only invalidate them.
type Session struct {
	Token       string     `json:"-"`
	UserID      string     `json:"userId"`
	LoginAt     time.Time  `json:"loginAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	IsLoggedOut bool       `json:"isLoggedOut"`
	LogoutAt    *time.Time `json:"logoutAt,omitempty"`
}

func New(token, userID string, now time.Time, ttl time.Duration) Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return Session{
		Token:     token,
		UserID:    userID,
		LoginAt:   now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired is true once now reaches ExpiresAt, whatever the logout state.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// State reports the lifecycle state at now. Expiry wins over logout.
func (s Session) State(now time.Time) State {
	switch {
	case s.Expired(now):
		return StateExpired
	case s.IsLoggedOut:
		return StateLoggedOut
	default:
		return StateActive
	}
}

// EffectiveEnd is the moment the session stopped (or will stop) being usable.
func (s Session) EffectiveEnd() time.Time {
	if s.LogoutAt != nil && s.LogoutAt.Before(s.ExpiresAt) {
		return *s.LogoutAt
	}
	return s.ExpiresAt
}

// LoggedOut returns a copy marked logged out at now. Already logged out sessions are returned unchanged.
func (s Session) LoggedOut(now time.Time) Session {
	if s.IsLoggedOut {
		return s
	}
	s.IsLoggedOut = true
	at := now
	s.LogoutAt = &at
	return s
}

// GenerateToken returns 32 bytes (256 bits) from crypto/rand, base64url encoded.
func GenerateToken() (string, error) {
	const size = 32

	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("session: failed to generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
