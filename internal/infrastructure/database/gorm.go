package database

import (
	"fmt"
	"time"

	"school-registration/internal/config"
	domain "school-registration/internal/domain/registration"
	applogger "school-registration/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func NewConnection(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN() + " connect_timeout=10")
	case DriverSQLite:
		dialector = sqlite.Open(cfg.Path + "?_busy_timeout=5000&_foreign_keys=on")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	applogger.WithFields(map[string]interface{}{
		"driver": cfg.Driver,
		"host":   cfg.Host,
		"name":   cfg.Name,
	}).Debug("Opening database connection")

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// sqlite has no row locks; one connection serializes transactions
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	return db, nil
}

// RunMigrations brings the schema up to date. Postgres uses the embedded SQL
// files; sqlite, used for local runs and tests, is migrated from the models.
func RunMigrations(db *gorm.DB) error {
	applogger.Info("Running database migrations...")

	if db.Dialector.Name() == DriverSQLite {
		if err := db.AutoMigrate(domain.AllModels()...); err != nil {
			return fmt.Errorf("failed to auto-migrate: %w", err)
		}
		applogger.Info("Database migrations completed successfully")
		return nil
	}

	if err := NewMigrationRunner(db).RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	applogger.Info("Database migrations completed successfully")
	return nil
}

func HealthCheck(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
