package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	appointmentdomain "github.com/smallbiznis/garagedesk/internal/appointment/domain"
	auditdomain "github.com/smallbiznis/garagedesk/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/garagedesk/internal/catalog/domain"
	invoicedomain "github.com/smallbiznis/garagedesk/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/garagedesk/internal/payment/domain"
	"gorm.io/gorm"
)

var errNoHandle = errors.New("migration: nil database handle")

const (
	succeededAttemptIndex    = "ux_payment_attempts_succeeded"
	succeededAttemptIndexDDL = "CREATE UNIQUE INDEX " + succeededAttemptIndex + " ON payment_attempts (invoice_id) WHERE status = 'succeeded'"
)

// RunMigrations applies the embedded postgres migrations that are not yet
// recorded in schema_migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errNoHandle
	}

	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	// m.Close would also close db, which the rest of the app still uses.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	files, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("migrations dir: %w", err)
	}
	source, err := iofs.New(files, ".")
	if err != nil {
		return nil, fmt.Errorf("migrations source: %w", err)
	}
	target, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migrations target: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "postgres", target)
}

// AutoMigrate builds the schema from the models for sqlite and mysql.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errNoHandle
	}

	if err := db.AutoMigrate(
		&catalogdomain.GarageService{},
		&appointmentdomain.Appointment{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&paymentdomain.PaymentAttempt{},
		&paymentdomain.EventRecord{},
		&auditdomain.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// mysql has no partial indexes; there the conditional status updates
	// are the only guard against a second succeeded attempt.
	if db.Dialector.Name() == "sqlite" && !db.Migrator().HasIndex(&paymentdomain.PaymentAttempt{}, succeededAttemptIndex) {
		// Kept on one line with no IF NOT EXISTS: the sqlite migrator re-parses
		// stored index DDL on every later AutoMigrate.
		if err := db.Exec(succeededAttemptIndexDDL).Error; err != nil {
			return fmt.Errorf("create succeeded attempt index: %w", err)
		}
	}
	return nil
}
