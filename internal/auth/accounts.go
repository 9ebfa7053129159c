package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/quorahub/internal/actorctx"
	"github.com/geocoder89/quorahub/internal/domain/user"
	"github.com/geocoder89/quorahub/internal/jobs"
	"go.opentelemetry.io/otel/attribute"
)

// Accounts owns the operations that write to the CredentialStore.
type Accounts struct {
	users  CredentialStore
	uow    UnitOfWork
	guard  *Guard
	hasher PasswordHasher
	evict  SessionEvicter
	cfg    Config
}

// NewAccounts wires account operations. evict may be nil when no session cache is in use.
func NewAccounts(users CredentialStore, uow UnitOfWork, guard *Guard, hasher PasswordHasher, evict SessionEvicter, cfg Config) *Accounts {
	return &Accounts{
		users:  users,
		uow:    uow,
		guard:  guard,
		hasher: hasher,
		evict:  evict,
		cfg:    cfg.withDefaults(),
	}
}

// Signup creates a nonadmin account and enqueues its welcome job in one unit of work.
func (a *Accounts) Signup(ctx context.Context, req user.SignupRequest) (u user.User, err error) {
	ctx, span := tracer.Start(ctx, "auth.Signup")
	defer func() {
		a.cfg.Observer.ObserveAuth("signup", signupOutcome(err))
		span.End()
	}()

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	candidate := user.NewFromSignup(req, hash)

	err = a.uow.Do(ctx, func(ctx context.Context, s Stores) error {
		created, err := s.Users.Create(ctx, candidate)
		if err != nil {
			return err
		}

		jr, err := jobs.NewCreateRequest(jobs.JobUserWelcome, created.ID, jobs.UserWelcomePayload{
			UserID:    created.ID,
			UserName:  created.Username,
			Email:     created.Email,
			FirstName: created.FirstName,
		})
		if err != nil {
			return err
		}

		_, err = s.Jobs.Enqueue(ctx, jr)
		if err != nil {
			return fmt.Errorf("enqueue welcome job: %w", err)
		}

		u = created
		return nil
	})
	if err != nil {
		return user.User{}, err
	}

	span.SetAttributes(attribute.String("user.id", u.ID))
	return u, nil
}

// Profile returns any existing account. Callers must already hold a resolved session.
func (a *Accounts) Profile(ctx context.Context, userID string) (user.User, error) {
	return a.users.FindByID(ctx, userID)
}

// Delete removes an account. Every session of the user is invalidated, the row is
// deleted and a user.removed job is enqueued; all three commit or none do.
func (a *Accounts) Delete(ctx context.Context, au AuthenticatedUser, userID string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.DeleteAccount")
	defer func() {
		a.cfg.Observer.ObserveAuth("delete_account", outcome(err))
		span.End()
	}()
	span.SetAttributes(attribute.String("target.user.id", userID))

	err = a.guard.Authorize(au, ResourceUser, ActionDelete, OwnerRef(userID))
	if err != nil {
		return err
	}

	target, err := a.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	reqID, _ := actorctx.RequestIDFrom(ctx)

	err = a.uow.Do(ctx, func(ctx context.Context, s Stores) error {
		n, err := s.Sessions.InvalidateAllForUser(ctx, target.ID, a.cfg.Now())
		if err != nil {
			return fmt.Errorf("invalidate sessions: %w", err)
		}

		err = s.Users.Delete(ctx, target.ID)
		if err != nil {
			return err
		}

		jr, err := jobs.NewCreateRequest(jobs.JobUserRemoved, target.ID, jobs.UserRemovedPayload{
			UserID:              target.ID,
			UserName:            target.Username,
			Email:               target.Email,
			RemovedBy:           au.UserID(),
			InvalidatedSessions: n,
			RemovedAt:           a.cfg.Now(),
			RequestID:           reqID,
		})
		if err != nil {
			return err
		}

		_, err = s.Jobs.Enqueue(ctx, jr)
		if err != nil {
			return fmt.Errorf("enqueue removed job: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if a.evict != nil {
		// sessions are already invalid in the store; eviction failure is not fatal
		if evErr := a.evict.EvictUser(ctx, target.ID); evErr != nil {
			span.RecordError(evErr)
		}
	}

	return nil
}

func signupOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, user.ErrDuplicateUsername):
		return "username_taken"
	case errors.Is(err, user.ErrDuplicateEmail):
		return "email_taken"
	default:
		return "error"
	}
}
