package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFailedToOpenDBConnection = errors.New("pg: failed to open db connection")
	ErrFailedToParseDBConfig    = errors.New("pg: failed to parse db config")
	ErrHealthcheckFailed        = errors.New("pg: healthcheck failed, connection is not available")
	ErrFailedToApplyMigrations  = errors.New("pg: failed to apply migrations")
	ErrMigrationsNotProvided    = errors.New("pg: migrations filesystem not provided")
)

// SQLSTATE codes inspected by the helpers below.
const (
	codeUniqueViolation       = "23505"
	codeDuplicateSchema       = "42P06"
	codeInsufficientPrivilege = "42501"
)

// IsNotFoundError reports whether a single-row query matched nothing.
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError detects unique constraint violations.
func IsDuplicateKeyError(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsDuplicateSchemaError detects CREATE SCHEMA on an existing name.
func IsDuplicateSchemaError(err error) bool {
	return hasCode(err, codeDuplicateSchema)
}

// IsInsufficientPrivilegeError detects permission failures, including row security WITH CHECK rejections.
func IsInsufficientPrivilegeError(err error) bool {
	return hasCode(err, codeInsufficientPrivilege)
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
