package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/session"
)

type SessionsRepo struct {
	mu rwLocker
	st *state
}

func (r *SessionsRepo) Create(ctx context.Context, s session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.st.sessions[s.Token]; exists {
		return fmt.Errorf("session token collision")
	}
	r.st.sessions[s.Token] = s
	return nil
}

func (r *SessionsRepo) FindByToken(ctx context.Context, token string) (session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.st.sessions[token]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

func (r *SessionsRepo) MarkLoggedOut(ctx context.Context, token string, at time.Time) (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.st.sessions[token]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}

	s = s.LoggedOut(at)
	r.st.sessions[token] = s
	return s, nil
}

func (r *SessionsRepo) InvalidateAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for token, s := range r.st.sessions {
		if s.UserID != userID || s.IsLoggedOut || s.Expired(at) {
			continue
		}
		r.st.sessions[token] = s.LoggedOut(at)
		n++
	}
	return n, nil
}
