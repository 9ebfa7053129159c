package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/geocoder89/quorahub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repo can run inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type observer struct {
	prom *observability.Prom
}

func (o observer) observe(op string, fn func() error) error {
	if o.prom != nil {
		return o.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// UnitOfWork binds users, sessions and jobs repos to one pgx.Tx.
type UnitOfWork struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUnitOfWork(pool *pgxpool.Pool, prom *observability.Prom) *UnitOfWork {
	return &UnitOfWork{pool: pool, prom: prom}
}

// Do commits when fn returns nil and rolls back on error or panic.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s auth.Stores) error) (err error) {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	err = fn(ctx, auth.Stores{
		Users:    NewUsersRepo(tx, u.prom),
		Sessions: NewSessionsRepo(tx, u.prom),
		Jobs:     NewJobsRepo(tx, u.prom),
	})
	return err
}
