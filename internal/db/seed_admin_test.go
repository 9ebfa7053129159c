package db

import (
	"context"
	"testing"

	"github.com/geocoder89/quorahub/internal/domain/user"
	"github.com/geocoder89/quorahub/internal/repo/memory"
	"github.com/geocoder89/quorahub/internal/security"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestEnsureAdminUser(t *testing.T) {
	ctx := context.Background()
	users := memory.NewStore().Users()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	seed := AdminSeed{Username: "root", Email: "root@example.com", Password: "s3cret-pass"}

	require.NoError(t, EnsureAdminUser(ctx, users, hasher, seed))

	u, err := users.FindByUsername(ctx, "root")
	require.NoError(t, err)
	require.Equal(t, user.RoleAdmin, u.Role)
	require.NoError(t, hasher.Verify(u.PasswordHash, "s3cret-pass"))

	// second run is a no-op
	require.NoError(t, EnsureAdminUser(ctx, users, hasher, seed))
	again, err := users.FindByUsername(ctx, "root")
	require.NoError(t, err)
	require.Equal(t, u.ID, again.ID)
}

func TestEnsureAdminUser_SkipsWhenUnconfigured(t *testing.T) {
	ctx := context.Background()
	users := memory.NewStore().Users()

	require.NoError(t, EnsureAdminUser(ctx, users, security.NewBcryptHasher(bcrypt.MinCost), AdminSeed{}))

	_, err := users.FindByUsername(ctx, "")
	require.ErrorIs(t, err, user.ErrNotFound)
}
