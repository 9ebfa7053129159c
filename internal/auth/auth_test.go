package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/geocoder89/quorahub/internal/domain/session"
	"github.com/geocoder89/quorahub/internal/domain/user"
	"github.com/geocoder89/quorahub/internal/repo/memory"
	"github.com/geocoder89/quorahub/internal/security"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) ObserveAuth(op, outcome string) {
	r.mu.Lock()
	r.events = append(r.events, op+":"+outcome)
	r.mu.Unlock()
}

type fixture struct {
	store    *memory.Store
	clock    *clock
	obs      *recorder
	authn    *auth.Authenticator
	guard    *auth.Guard
	accounts *auth.Accounts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	clk := &clock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	obs := &recorder{}
	hasher := testHasher()

	cfg := auth.Config{Now: clk.Now, Observer: obs}

	guard := auth.NewGuard(store.Users(), store.Sessions(), cfg)

	return &fixture{
		store:    store,
		clock:    clk,
		obs:      obs,
		authn:    auth.NewAuthenticator(store.Users(), store.Sessions(), hasher, cfg),
		guard:    guard,
		accounts: auth.NewAccounts(store.Users(), store, guard, hasher, nil, cfg),
	}
}

func (f *fixture) signup(t *testing.T, username string) user.User {
	t.Helper()

	u, err := f.accounts.Signup(context.Background(), user.SignupRequest{
		FirstName:    username,
		LastName:     "Tester",
		UserName:     username,
		EmailAddress: username + "@example.com",
		Password:     "password-" + username,
	})
	require.NoError(t, err)
	return u
}

// admin inserts an admin directly, the way the startup seed does.
func (f *fixture) admin(t *testing.T, username string) user.User {
	t.Helper()

	hash, err := testHasher().Hash("password-" + username)
	require.NoError(t, err)

	u := user.NewFromSignup(user.SignupRequest{UserName: username, EmailAddress: username + "@example.com"}, hash)
	u.Role = user.RoleAdmin

	created, err := f.store.Users().Create(context.Background(), u)
	require.NoError(t, err)
	return created
}

func (f *fixture) signin(t *testing.T, username string) session.Session {
	t.Helper()

	s, err := f.authn.Authenticate(context.Background(), username, "password-"+username)
	require.NoError(t, err)
	return s
}

func requireReason(t *testing.T, err error, kind error, reason auth.Reason) {
	t.Helper()

	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	got, ok := auth.ReasonOf(err)
	require.True(t, ok, "not an auth error: %v", err)
	require.Equal(t, reason, got)
}

func testHasher() security.BcryptHasher {
	return security.NewBcryptHasher(bcrypt.MinCost)
}
