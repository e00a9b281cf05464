package db

import (
	"strings"

	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraintName is provided only that constraint matches. Sqlite
// errors are matched on message so repository tests behave like Postgres.
func IsUniqueViolation(err error, constraintName string) bool {
	return isViolation(err, pgUniqueViolation, constraintName, "duplicate key value", "UNIQUE constraint failed")
}

// IsCheckViolation reports whether err broke a CHECK constraint, such as
// the non-negative quantity guard on inventory.
func IsCheckViolation(err error, constraintName string) bool {
	return isViolation(err, pgCheckViolation, constraintName, "violates check constraint", "CHECK constraint failed")
}

func isViolation(err error, sqlState, constraintName string, markers ...string) bool {
	if err == nil {
		return false
	}
	if pg := pkgerrors.Postgres(err); pg != nil {
		return pg.Code == sqlState && (constraintName == "" || pg.Constraint == constraintName)
	}
	msg := err.Error()
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return constraintName == "" || strings.Contains(msg, constraintName)
		}
	}
	return false
}
