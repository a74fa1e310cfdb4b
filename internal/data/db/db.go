package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

type Config struct {
	// Driver is "postgres" or "sqlite".
	Driver string
	DSN    string
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold:             1 * time.Second,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	}
}

// Open connects with the configured driver and migrates the schema.
func Open(logg *logger.Logger, cfg Config) (*gorm.DB, error) {
	serviceLog := logg.With("service", "Database")
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))

	var (
		gdb *gorm.DB
		err error
	)
	switch driver {
	case "", "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("missing DATABASE_URL")
		}
		gdb, err = gorm.Open(postgres.Open(cfg.DSN), gormConfig())
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file:studyforge.db?_busy_timeout=5000"
		}
		gdb, err = gorm.Open(sqlite.Open(dsn), gormConfig())
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if driver == "sqlite" {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := AutoMigrateAll(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	serviceLog.Info("Database ready", "driver", gdb.Dialector.Name())
	return gdb, nil
}
