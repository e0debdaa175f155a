package pkg

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes of integrity constraint violations (class 23),
// https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// PgErrorCode returns the SQLSTATE of a postgres error anywhere in err's chain.
func PgErrorCode(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	return "", false
}

func IsUniqueViolationError(err error) bool {
	code, ok := PgErrorCode(err)
	return ok && code == pgUniqueViolation
}

func IsForeignKeyViolationError(err error) bool {
	code, ok := PgErrorCode(err)
	return ok && code == pgForeignKeyViolation
}

// IsInvalidValueError reports a CHECK or NOT NULL violation: the row itself is malformed.
func IsInvalidValueError(err error) bool {
	code, ok := PgErrorCode(err)
	return ok && (code == pgCheckViolation || code == pgNotNullViolation)
}
