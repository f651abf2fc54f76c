package db

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/smallbiznis/garagedesk/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
	TypeSQLite   = "sqlite"
)

// Dialect picks the gorm driver for DATABASE_TYPE. All timestamps are stored
// in UTC whatever the backend.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.DBType))
	switch kind {
	case TypePostgres:
		return postgres.Open(postgresDSN(cfg)), nil
	case TypeMySQL:
		return mysql.Open(mysqlDSN(cfg)), nil
	case TypeSQLite:
		dsn := strings.TrimSpace(cfg.DBDSN)
		if dsn == "" {
			dsn = "garagedesk.db"
		}
		return sqlite.Open(SQLiteDSN(dsn)), nil
	}
	return nil, fmt.Errorf("db: unsupported DATABASE_TYPE %q", cfg.DBType)
}

// SQLiteDSN adds the connection settings a pooled sqlite file needs: writers
// wait on busy_timeout instead of failing with SQLITE_BUSY, and transactions
// take the write lock at BEGIN so a read-then-write never has to upgrade.
// Settings already present in dsn are left alone.
func SQLiteDSN(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "busy_timeout") {
		params = append(params, "_pragma=busy_timeout(5000)")
	}
	if !strings.Contains(dsn, "journal_mode") && !strings.Contains(dsn, "mode=memory") {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	if !strings.Contains(dsn, "_txlock") {
		params = append(params, "_txlock=immediate")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func postgresDSN(cfg config.Config) string {
	parts := []string{
		"host=" + cfg.DBHost,
		"port=" + cfg.DBPort,
		"user=" + cfg.DBUser,
		"password=" + cfg.DBPassword,
		"dbname=" + cfg.DBName,
		"sslmode=" + cfg.DBSSLMode,
		"TimeZone=UTC",
	}
	return strings.Join(parts, " ")
}

func mysqlDSN(cfg config.Config) string {
	dsn := mysqldriver.NewConfig()
	dsn.User = cfg.DBUser
	dsn.Passwd = cfg.DBPassword
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
	dsn.DBName = cfg.DBName
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}
