package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/quorahub/internal/domain/session"
	"github.com/geocoder89/quorahub/internal/domain/user"
	"github.com/geocoder89/quorahub/internal/security"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Authenticator verifies credentials, mints sessions and signs them out.
type Authenticator struct {
	users    CredentialStore
	sessions SessionStore
	hasher   PasswordHasher
	cfg      Config
}

func NewAuthenticator(users CredentialStore, sessions SessionStore, hasher PasswordHasher, cfg Config) *Authenticator {
	return &Authenticator{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		cfg:      cfg.withDefaults(),
	}
}

// Authenticate checks username and password and persists exactly one new session.
// Concurrent sessions for the same user are allowed.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (s session.Session, err error) {
	ctx, span := tracer.Start(ctx, "auth.Authenticate")
	defer func() {
		a.cfg.Observer.ObserveAuth("signin", outcome(err))
		if err != nil {
			span.SetStatus(codes.Error, outcome(err))
		}
		span.End()
	}()

	u, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return session.Session{}, newError(ErrAuthenticationFailed, ReasonUsernameNotFound)
		}
		return session.Session{}, fmt.Errorf("find user by username: %w", err)
	}

	err = a.hasher.Verify(u.PasswordHash, password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return session.Session{}, newError(ErrAuthenticationFailed, ReasonPasswordMismatch)
		}
		return session.Session{}, fmt.Errorf("verify password: %w", err)
	}

	token, err := a.cfg.NewToken()
	if err != nil {
		return session.Session{}, err
	}

	s = session.New(token, u.ID, a.cfg.Now(), a.cfg.SessionTTL)

	err = a.sessions.Create(ctx, s)
	if err != nil {
		return session.Session{}, fmt.Errorf("create session: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", u.ID))
	return s, nil
}

// SignOut marks the session logged out. Signing out twice returns the stored state unchanged.
func (a *Authenticator) SignOut(ctx context.Context, token string) (s session.Session, err error) {
	ctx, span := tracer.Start(ctx, "auth.SignOut")
	defer func() {
		a.cfg.Observer.ObserveAuth("signout", outcome(err))
		if err != nil {
			span.SetStatus(codes.Error, outcome(err))
		}
		span.End()
	}()

	if token == "" {
		return session.Session{}, newError(ErrSignOutRestricted, ReasonTokenNotFound)
	}

	s, err = a.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return session.Session{}, newError(ErrSignOutRestricted, ReasonTokenNotFound)
		}
		return session.Session{}, fmt.Errorf("find session: %w", err)
	}

	// expiry wins over logout, as in Guard.Resolve
	now := a.cfg.Now()
	if s.Expired(now) {
		return session.Session{}, newError(ErrSignOutRestricted, ReasonSessionExpired)
	}

	// repeats keep the first logout stamp and re-record it in any cache
	s, err = a.sessions.MarkLoggedOut(ctx, token, now)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return session.Session{}, newError(ErrSignOutRestricted, ReasonTokenNotFound)
		}
		return session.Session{}, fmt.Errorf("mark logged out: %w", err)
	}

	return s, nil
}
