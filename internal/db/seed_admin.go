package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/geocoder89/quorahub/internal/domain/user"
)

type AdminSeed struct {
	Username string
	Email    string
	Password string
}

// EnsureAdminUser creates the configured admin account if the username is free.
// Signup only ever creates nonadmin accounts, so this is the only way an admin exists.
func EnsureAdminUser(ctx context.Context, users auth.CredentialStore, hasher auth.PasswordHasher, seed AdminSeed) error {
	if seed.Username == "" || seed.Email == "" || seed.Password == "" {
		return nil
	}

	// check if the user exists
	existing, err := users.FindByUsername(ctx, seed.Username)
	if err == nil {
		if !existing.Role.IsAdmin() {
			slog.WarnContext(ctx, "admin_seed_username_taken_by_nonadmin", "username", seed.Username)
		}
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := hasher.Hash(seed.Password)
	if err != nil {
		return err
	}

	u := user.NewFromSignup(user.SignupRequest{
		FirstName:    "Admin",
		UserName:     seed.Username,
		EmailAddress: seed.Email,
	}, hash)
	u.Role = user.RoleAdmin

	_, err = users.Create(ctx, u)
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.InfoContext(ctx, "admin_seeded", "user_id", u.ID, "username", u.Username)
	return nil
}
