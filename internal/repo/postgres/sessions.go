package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/session"
	"github.com/geocoder89/quorahub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type SessionsRepo struct {
	observer
	db DBTX
}

func NewSessionsRepo(db DBTX, prom *observability.Prom) *SessionsRepo {
	return &SessionsRepo{observer: observer{prom: prom}, db: db}
}

const sessionColumns = `token, user_id, login_at, expires_at, is_logged_out, logout_at`

func scanSession(row pgx.Row) (session.Session, error) {
	var s session.Session

	err := row.Scan(
		&s.Token,
		&s.UserID,
		&s.LoginAt,
		&s.ExpiresAt,
		&s.IsLoggedOut,
		&s.LogoutAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, err
	}
	return s, nil
}

func (r *SessionsRepo) Create(ctx context.Context, s session.Session) error {
	return r.observe("sessions.create", func() error {
		_, err := r.db.Exec(ctx,
			`INSERT INTO user_sessions (`+sessionColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6)
			`,
			s.Token, s.UserID, s.LoginAt, s.ExpiresAt, s.IsLoggedOut, s.LogoutAt,
		)
		return err
	})
}

func (r *SessionsRepo) FindByToken(ctx context.Context, token string) (session.Session, error) {
	var s session.Session
	var notFound bool

	err := r.observe("sessions.find_by_token", func() error {
		var err error
		s, err = scanSession(r.db.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM user_sessions WHERE token = $1`, token))
		if errors.Is(err, session.ErrNotFound) {
			notFound = true
			return nil
		}
		return err
	})
	if err != nil {
		return session.Session{}, err
	}
	if notFound {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

// MarkLoggedOut is a single statement; the first logout stamp wins.
func (r *SessionsRepo) MarkLoggedOut(ctx context.Context, token string, at time.Time) (session.Session, error) {
	var s session.Session
	var notFound bool

	err := r.observe("sessions.mark_logged_out", func() error {
		var err error
		s, err = scanSession(r.db.QueryRow(ctx, `
		UPDATE user_sessions
		SET is_logged_out = TRUE,
		    logout_at = COALESCE(logout_at, $2)
		WHERE token = $1
		RETURNING `+sessionColumns,
			token, at,
		))
		if errors.Is(err, session.ErrNotFound) {
			notFound = true
			return nil
		}
		return err
	})
	if err != nil {
		return session.Session{}, err
	}
	if notFound {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

func (r *SessionsRepo) InvalidateAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	var tag pgconn.CommandTag

	err := r.observe("sessions.invalidate_all_for_user", func() error {
		var err error
		tag, err = r.db.Exec(ctx, `
		UPDATE user_sessions
		SET is_logged_out = TRUE,
		    logout_at = $2
		WHERE user_id = $1
		  AND is_logged_out = FALSE
		  AND expires_at > $2
		`, userID, at)
		return err
	})
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
