package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/quorahub/internal/domain/session"
	"github.com/geocoder89/quorahub/internal/domain/user"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Owned is anything with a single owning user.
type Owned interface {
	OwnerID() string
}

// OwnerRef is an Owned known only by its owner id, such as a user account referenced by id.
type OwnerRef string

func (o OwnerRef) OwnerID() string { return string(o) }

// AuthenticatedUser is the result of resolving a valid token.
type AuthenticatedUser struct {
	User    user.User
	Session session.Session
}

func (au AuthenticatedUser) UserID() string { return au.User.ID }

func (au AuthenticatedUser) IsAdmin() bool { return au.User.Role.IsAdmin() }

// Guard validates tokens and applies ownership and role rules.
type Guard struct {
	users    CredentialStore
	sessions SessionStore
	cfg      Config
}

func NewGuard(users CredentialStore, sessions SessionStore, cfg Config) *Guard {
	return &Guard{
		users:    users,
		sessions: sessions,
		cfg:      cfg.withDefaults(),
	}
}

func (g *Guard) Policy() Policy {
	return g.cfg.Policy.clone()
}

// Resolve checks, in order: token known, not expired, not logged out, user still present.
// Expiry is detected lazily here; nothing sweeps sessions.
func (g *Guard) Resolve(ctx context.Context, token string) (au AuthenticatedUser, err error) {
	ctx, span := tracer.Start(ctx, "auth.Resolve")
	defer func() {
		g.cfg.Observer.ObserveAuth("resolve", outcome(err))
		if err != nil {
			span.SetStatus(codes.Error, outcome(err))
		}
		span.End()
	}()

	if token == "" {
		return AuthenticatedUser{}, newError(ErrAuthorizationFailed, ReasonTokenNotFound)
	}

	s, err := g.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return AuthenticatedUser{}, newError(ErrAuthorizationFailed, ReasonTokenNotFound)
		}
		return AuthenticatedUser{}, fmt.Errorf("find session: %w", err)
	}

	if s.Expired(g.cfg.Now()) {
		return AuthenticatedUser{}, newError(ErrAuthorizationFailed, ReasonSessionExpired)
	}
	if s.IsLoggedOut {
		return AuthenticatedUser{}, newError(ErrAuthorizationFailed, ReasonUserLoggedOut)
	}

	u, err := g.users.FindByID(ctx, s.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return AuthenticatedUser{}, newError(ErrAuthorizationFailed, ReasonUserNotFound)
		}
		return AuthenticatedUser{}, fmt.Errorf("find session user: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", u.ID))
	return AuthenticatedUser{User: u, Session: s}, nil
}

// RequireOwner allows only the owner. Admins get no bypass.
func (g *Guard) RequireOwner(o Owned, au AuthenticatedUser) error {
	if o != nil && o.OwnerID() != "" && o.OwnerID() == au.UserID() {
		return nil
	}
	return newError(ErrAuthorizationFailed, ReasonNotOwner)
}

func (g *Guard) RequireOwnerOrAdmin(o Owned, au AuthenticatedUser) error {
	if au.IsAdmin() {
		return nil
	}
	return g.RequireOwner(o, au)
}

func (g *Guard) RequireAdmin(au AuthenticatedUser) error {
	if au.IsAdmin() {
		return nil
	}
	return newError(ErrAuthorizationFailed, ReasonNotAdmin)
}

// Authorize applies the policy rule for res x act. Pairs absent from the policy are denied.
func (g *Guard) Authorize(au AuthenticatedUser, res Resource, act Action, o Owned) (err error) {
	defer func() {
		g.cfg.Observer.ObserveAuth("authorize."+string(res)+"."+string(act), outcome(err))
	}()

	rule, ok := g.cfg.Policy.Rule(res, act)
	if !ok {
		return newError(ErrAuthorizationFailed, ReasonNotAdmin)
	}

	switch rule {
	case RuleOwnerOnly:
		return g.RequireOwner(o, au)
	case RuleOwnerOrAdmin:
		return g.RequireOwnerOrAdmin(o, au)
	case RuleAdminOnly:
		return g.RequireAdmin(au)
	default:
		return newError(ErrAuthorizationFailed, ReasonNotAdmin)
	}
}
