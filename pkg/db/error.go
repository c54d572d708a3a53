package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsRetryableTxErr reports whether a transaction failed for a reason the
// caller may safely retry: serialization conflicts, deadlocks, or the
// driver's cached-plan invalidation after a schema change.
func IsRetryableTxErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()

	// PostgreSQL 40001 / 40P01
	if strings.Contains(msg, "could not serialize access") ||
		strings.Contains(msg, "deadlock detected") {
		return true
	}

	// pgx prepared statement invalidation (0A000)
	if strings.Contains(msg, "cached plan must not change result type") {
		return true
	}

	// MySQL 1213
	if strings.Contains(msg, "Deadlock found when trying to get lock") {
		return true
	}

	// SQLite busy
	if strings.Contains(msg, "database is locked") {
		return true
	}

	return false
}
