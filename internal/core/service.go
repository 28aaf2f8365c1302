// Package core provides the business logic for the birth registry:
// record and user stores backed by Postgres, and the workbook import
// pipeline that feeds them.
package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civreg/civreg/internal/config"
)

// Sentinel errors returned by the stores.
var (
	// ErrNotFound is returned when a record or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateNotification is returned when a birth notification
	// number already exists.
	ErrDuplicateNotification = errors.New("birth notification number already exists")

	// ErrEmailTaken is returned when a user email already exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned by Authenticate for a wrong
	// email or password.
	ErrInvalidCredentials = errors.New("incorrect email or password")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so store queries
// can run standalone or inside an import transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service provides record, user, and import operations over a shared
// connection pool.
type Service struct {
	pool *pgxpool.Pool
	cfg  *config.Config
}

// NewService creates a Service over pool configured by cfg.
func NewService(pool *pgxpool.Pool, cfg *config.Config) *Service {
	return &Service{pool: pool, cfg: cfg}
}

// Ping verifies database connectivity, for health checks.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
