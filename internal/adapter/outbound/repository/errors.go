package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common error types
var (
	ErrNotFound            = errors.New("record not found")
	ErrAlreadyExists       = errors.New("record already exists")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrConnectionFailed    = errors.New("database connection failed")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUndefinedTable      = errors.New("table does not exist, run migrations")
)

// PostgreSQL error codes this package distinguishes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
	pgUndefinedTable      = "42P01"
)

// IsNotFoundError checks if an error is a "not found" error
func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound)
}

// IsConstraintViolationError checks if an error is a constraint violation
func IsConstraintViolationError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation, pgCheckViolation, pgNotNullViolation:
			return true
		}
	}
	return errors.Is(err, ErrConstraintViolation) || errors.Is(err, ErrAlreadyExists)
}

// IsConnectionError checks if an error is a connection-related error
func IsConnectionError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		// 08: connection exception, 57: operator intervention
		switch pgErr.Code[:2] {
		case "08", "57":
			return true
		}
	}
	var connectErr *pgconn.ConnectError
	return errors.As(err, &connectErr) || errors.Is(err, ErrConnectionFailed)
}

// WrapError wraps a database error with the failed operation, mapping known
// PostgreSQL failures to this package's sentinels.
func WrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if IsNotFoundError(err) {
		return fmt.Errorf("%s failed: %w", operation, ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s failed: %w", operation, ErrAlreadyExists)
		case pgUndefinedTable:
			return fmt.Errorf("%s failed: %w: %s", operation, ErrUndefinedTable, pgErr.Message)
		}
	}
	if IsConstraintViolationError(err) {
		return fmt.Errorf("%s failed: %w: %w", operation, ErrConstraintViolation, err)
	}
	if IsConnectionError(err) {
		return fmt.Errorf("%s failed: %w: %w", operation, ErrConnectionFailed, err)
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}
