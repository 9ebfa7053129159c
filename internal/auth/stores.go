package auth

import (
	"context"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/job"
	"github.com/geocoder89/quorahub/internal/domain/session"
	"github.com/geocoder89/quorahub/internal/domain/user"
)

// CredentialStore holds user identity records. It knows nothing about sessions.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (user.User, error)
	FindByID(ctx context.Context, id string) (user.User, error)
	// Create fails with user.ErrDuplicateUsername or user.ErrDuplicateEmail, username checked first.
	Create(ctx context.Context, u user.User) (user.User, error)
	Delete(ctx context.Context, id string) error
}

// SessionStore persists sessions keyed by token. Sessions are never deleted.
type SessionStore interface {
	Create(ctx context.Context, s session.Session) error
	FindByToken(ctx context.Context, token string) (session.Session, error)
	// MarkLoggedOut is a no-op on an already logged out session and returns its stored state.
	MarkLoggedOut(ctx context.Context, token string, at time.Time) (session.Session, error)
	// InvalidateAllForUser marks every still active session of the user logged out.
	InvalidateAllForUser(ctx context.Context, userID string, at time.Time) (int64, error)
}

type JobQueue interface {
	Enqueue(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

// Stores is the set of stores bound to one unit of work.
type Stores struct {
	Users    CredentialStore
	Sessions SessionStore
	Jobs     JobQueue
}

// UnitOfWork runs fn against stores that commit or roll back together.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) error
}

// SessionEvicter drops any cached session state for a user.
type SessionEvicter interface {
	EvictUser(ctx context.Context, userID string) error
}

// Observer receives one outcome per auth operation. Outcome is "ok" or a reason code.
type Observer interface {
	ObserveAuth(op string, outcome string)
}

type noopObserver struct{}

func (noopObserver) ObserveAuth(string, string) {}
