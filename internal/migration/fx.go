package migration

import (
	"context"
	"strings"

	catalogdomain "github.com/smallbiznis/garagedesk/internal/catalog/domain"
	"github.com/smallbiznis/garagedesk/internal/config"
	pkgdb "github.com/smallbiznis/garagedesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(prepareSchema),
)

// prepareSchema runs before the HTTP server starts listening. Postgres gets
// the versioned SQL migrations, the other backends are built from the models.
func prepareSchema(conn *gorm.DB, cfg config.Config, catalog catalogdomain.Service, log *zap.Logger) error {
	log = log.Named("migration")

	if strings.EqualFold(strings.TrimSpace(cfg.DBType), pkgdb.TypePostgres) {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		log.Info("sql migrations applied")
	} else {
		if err := AutoMigrate(conn); err != nil {
			return err
		}
		log.Info("schema synced from models", zap.String("dialect", conn.Dialector.Name()))
	}

	if cfg.SeedCatalog {
		if err := catalog.Seed(context.Background()); err != nil {
			return err
		}
		log.Info("default catalog seeded")
	}
	return nil
}
