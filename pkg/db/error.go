package db

import (
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqliteUniqueFragment = "UNIQUE constraint failed"
)

// IsDuplicateKeyErr reports whether err is a unique constraint violation on
// any of the supported databases. Wrapped errors are unwrapped.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	if pgErr := (*pgconn.PgError)(nil); errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	if myErr := (*mysqldriver.MySQLError)(nil); errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}

	// The pure-go sqlite driver only exposes the constraint in its message.
	return strings.Contains(err.Error(), sqliteUniqueFragment)
}
