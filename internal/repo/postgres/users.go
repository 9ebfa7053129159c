package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/quorahub/internal/domain/user"
	"github.com/geocoder89/quorahub/internal/observability"
	"github.com/geocoder89/quorahub/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type UsersRepo struct {
	observer
	db DBTX
}

func NewUsersRepo(db DBTX, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{observer: observer{prom: prom}, db: db}
}

const userColumns = `id, username, email, password_hash, role, first_name, last_name,
	country, about_me, dob, contact_number, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var role string

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.FirstName,
		&u.LastName,
		&u.Country,
		&u.AboutMe,
		&u.DOB,
		&u.ContactNumber,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	u.Role, err = user.ParseRole(role)
	if err != nil {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return u, nil
}

func (r *UsersRepo) FindByUsername(ctx context.Context, username string) (user.User, error) {
	var u user.User
	var notFound bool

	err := r.observe("users.find_by_username", func() error {
		var err error
		u, err = scanUser(r.db.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
		if errors.Is(err, user.ErrNotFound) {
			notFound = true
			return nil
		}
		return err
	})
	if err != nil {
		return user.User{}, err
	}
	if notFound {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	if !utils.IsUUID(id) {
		return user.User{}, user.ErrNotFound
	}

	var u user.User
	var notFound bool

	err := r.observe("users.find_by_id", func() error {
		var err error
		u, err = scanUser(r.db.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		if errors.Is(err, user.ErrNotFound) {
			notFound = true
			return nil
		}
		return err
	})
	if err != nil {
		return user.User{}, err
	}
	if notFound {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

// Create inserts with ON CONFLICT DO NOTHING so that a conflict leaves the
// transaction usable, then reports the username conflict ahead of the email one.
func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	var tag pgconn.CommandTag

	err := r.observe("users.create", func() error {
		var err error
		tag, err = r.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT DO NOTHING
		`,
			u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.FirstName, u.LastName,
			u.Country, u.AboutMe, u.DOB, u.ContactNumber, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return user.User{}, mapUserConflict(err)
	}

	if tag.RowsAffected() == 1 {
		return u, nil
	}

	var usernameTaken bool
	err = r.observe("users.create.conflict", func() error {
		return r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, u.Username,
		).Scan(&usernameTaken)
	})
	if err != nil {
		return user.User{}, err
	}

	if usernameTaken {
		return user.User{}, user.ErrDuplicateUsername
	}
	return user.User{}, user.ErrDuplicateEmail
}

func mapUserConflict(err error) error {
	if !IsUniqueViolation(err) {
		return err
	}
	switch constraintName(err) {
	case "users_username_key":
		return user.ErrDuplicateUsername
	case "users_email_key":
		return user.ErrDuplicateEmail
	default:
		return err
	}
}

// Delete removes the account; questions and answers go with it through ON DELETE CASCADE.
func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	if !utils.IsUUID(id) {
		return user.ErrNotFound
	}

	var tag pgconn.CommandTag

	err := r.observe("users.delete", func() error {
		var err error
		tag, err = r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}
