package db

import (
	"errors"
	"fmt"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smallbiznis/garagedesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "pgx", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "pgx other code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: payment_attempts.invoice_id"), want: true},
		{name: "mysql", err: fmt.Errorf("create: %w", &mysqldriver.MySQLError{Number: 1062}), want: true},
		{name: "mysql other number", err: &mysqldriver.MySQLError{Number: 1452}, want: false},
		{name: "other", err: errors.New("connection refused"), want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}

func TestDialect(t *testing.T) {
	for _, dbType := range []string{TypePostgres, TypeMySQL, TypeSQLite} {
		dialector, err := Dialect(config.Config{DBType: dbType})
		require.NoError(t, err, dbType)
		assert.NotNil(t, dialector, dbType)
	}

	_, err := Dialect(config.Config{DBType: "oracle"})
	assert.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	dsn := mysqlDSN(config.Config{
		DBUser: "garage", DBPassword: "secret", DBHost: "db", DBPort: "3306", DBName: "garagedesk",
	})

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db:3306", parsed.Addr)
	assert.Equal(t, "garagedesk", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestSQLiteDSN(t *testing.T) {
	cases := []struct {
		name string
		dsn  string
		want string
	}{
		{
			name: "plain file",
			dsn:  "garagedesk.db",
			want: "garagedesk.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate",
		},
		{
			name: "existing query",
			dsn:  "file:garagedesk.db?cache=private",
			want: "file:garagedesk.db?cache=private&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate",
		},
		{
			name: "memory keeps journal mode",
			dsn:  "file:test?mode=memory&cache=shared",
			want: "file:test?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_txlock=immediate",
		},
		{
			name: "caller settings win",
			dsn:  "garagedesk.db?_pragma=busy_timeout(100)&_pragma=journal_mode(DELETE)&_txlock=deferred",
			want: "garagedesk.db?_pragma=busy_timeout(100)&_pragma=journal_mode(DELETE)&_txlock=deferred",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SQLiteDSN(tc.dsn))
		})
	}
}
