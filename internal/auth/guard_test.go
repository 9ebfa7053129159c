package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/geocoder89/quorahub/internal/domain/answer"
	"github.com/geocoder89/quorahub/internal/domain/question"
	"github.com/geocoder89/quorahub/internal/domain/session"
	"github.com/stretchr/testify/require"
)

func TestResolve_ValidToken(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice")
	s := f.signin(t, "alice")

	au, err := f.guard.Resolve(context.Background(), s.Token)
	require.NoError(t, err)
	require.Equal(t, alice.ID, au.UserID())
	require.Equal(t, s.Token, au.Session.Token)
	require.False(t, au.IsAdmin())
}

func TestResolve_UnknownToken(t *testing.T) {
	f := newFixture(t)

	for _, tok := range []string{"", "never-issued"} {
		_, err := f.guard.Resolve(context.Background(), tok)
		requireReason(t, err, auth.ErrAuthorizationFailed, auth.ReasonTokenNotFound)
	}
}

func TestResolve_LoggedOutBeforeExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t, "alice")
	s := f.signin(t, "alice")

	_, err := f.authn.SignOut(ctx, s.Token)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)

	_, err = f.guard.Resolve(ctx, s.Token)
	requireReason(t, err, auth.ErrAuthorizationFailed, auth.ReasonUserLoggedOut)
}

func TestResolve_ExpiryWinsOverLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t, "alice")

	active := f.signin(t, "alice")
	loggedOut := f.signin(t, "alice")
	_, err := f.authn.SignOut(ctx, loggedOut.Token)
	require.NoError(t, err)

	// one nanosecond before the boundary the active token still works
	f.clock.Advance(session.DefaultTTL - time.Nanosecond)
	_, err = f.guard.Resolve(ctx, active.Token)
	require.NoError(t, err)

	f.clock.Advance(time.Nanosecond)

	for _, tok := range []string{active.Token, loggedOut.Token} {
		_, err = f.guard.Resolve(ctx, tok)
		requireReason(t, err, auth.ErrAuthorizationFailed, auth.ReasonSessionExpired)
	}
}

func TestResolve_UserGone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.signup(t, "alice")
	s := f.signin(t, "alice")

	// bypass Accounts.Delete so the session row stays active
	require.NoError(t, f.store.Users().Delete(ctx, alice.ID))

	_, err := f.guard.Resolve(ctx, s.Token)
	requireReason(t, err, auth.ErrAuthorizationFailed, auth.ReasonUserNotFound)
}

func TestOwnershipMatrix(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t, "alice")
	f.signup(t, "bob")
	f.admin(t, "root")

	resolve := func(name string) auth.AuthenticatedUser {
		au, err := f.guard.Resolve(ctx, f.signin(t, name).Token)
		require.NoError(t, err)
		return au
	}

	alice := resolve("alice")
	bob := resolve("bob")
	root := resolve("root")

	q := question.Question{ID: "q1", UserID: alice.UserID()}

	tests := []struct {
		name      string
		caller    auth.AuthenticatedUser
		owner     bool
		ownerOrAd bool
		admin     bool
	}{
		{"owner", alice, true, true, false},
		{"other user", bob, false, false, false},
		{"admin not owner", root, false, true, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := f.guard.RequireOwner(q, tt.caller)
			if tt.owner {
				require.NoError(t, err)
			} else {
				requireReason(t, err, auth.ErrAuthorizationFailed, auth.ReasonNotOwner)
			}

			err = f.guard.RequireOwnerOrAdmin(q, tt.caller)
			if tt.ownerOrAd {
				require.NoError(t, err)
			} else {
				requireReason(t, err, auth.ErrAuthorizationFailed, auth.ReasonNotOwner)
			}

			err = f.guard.RequireAdmin(tt.caller)
			if tt.admin {
				require.NoError(t, err)
			} else {
				requireReason(t, err, auth.ErrAuthorizationFailed, auth.ReasonNotAdmin)
			}
		})
	}
}

func TestAuthorize_DefaultPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t, "alice")
	f.admin(t, "root")

	alice, err := f.guard.Resolve(ctx, f.signin(t, "alice").Token)
	require.NoError(t, err)
	root, err := f.guard.Resolve(ctx, f.signin(t, "root").Token)
	require.NoError(t, err)

	q := question.Question{ID: "q1", UserID: alice.UserID()}
	a := answer.Answer{ID: "a1", UserID: alice.UserID()}

	tests := []struct {
		name    string
		caller  auth.AuthenticatedUser
		res     auth.Resource
		act     auth.Action
		owned   auth.Owned
		allowed bool
		reason  auth.Reason
	}{
		{"owner edits question", alice, auth.ResourceQuestion, auth.ActionEdit, q, true, ""},
		{"admin edits question", root, auth.ResourceQuestion, auth.ActionEdit, q, false, auth.ReasonNotOwner},
		{"admin deletes question", root, auth.ResourceQuestion, auth.ActionDelete, q, false, auth.ReasonNotOwner},
		{"admin edits answer", root, auth.ResourceAnswer, auth.ActionEdit, a, false, auth.ReasonNotOwner},
		{"admin deletes answer", root, auth.ResourceAnswer, auth.ActionDelete, a, true, ""},
		{"owner deletes answer", alice, auth.ResourceAnswer, auth.ActionDelete, a, true, ""},
		{"user deletes own account", alice, auth.ResourceUser, auth.ActionDelete, auth.OwnerRef(alice.UserID()), false, auth.ReasonNotAdmin},
		{"admin deletes account", root, auth.ResourceUser, auth.ActionDelete, auth.OwnerRef(alice.UserID()), true, ""},
		{"unknown pair denied", root, auth.ResourceUser, auth.ActionEdit, auth.OwnerRef(root.UserID()), false, auth.ReasonNotAdmin},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := f.guard.Authorize(tt.caller, tt.res, tt.act, tt.owned)
			if tt.allowed {
				require.NoError(t, err)
				return
			}
			requireReason(t, err, auth.ErrAuthorizationFailed, tt.reason)
		})
	}
}

func TestAuthorize_PolicyOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t, "alice")
	f.admin(t, "root")

	policy, err := auth.ParsePolicy("question.delete=owner_or_admin")
	require.NoError(t, err)

	guard := auth.NewGuard(f.store.Users(), f.store.Sessions(), auth.Config{Now: f.clock.Now, Policy: policy})

	alice, err := guard.Resolve(ctx, f.signin(t, "alice").Token)
	require.NoError(t, err)
	root, err := guard.Resolve(ctx, f.signin(t, "root").Token)
	require.NoError(t, err)

	q := question.Question{ID: "q1", UserID: alice.UserID()}
	require.NoError(t, guard.Authorize(root, auth.ResourceQuestion, auth.ActionDelete, q))

	err = guard.Authorize(root, auth.ResourceQuestion, auth.ActionEdit, q)
	requireReason(t, err, auth.ErrAuthorizationFailed, auth.ReasonNotOwner)
}
