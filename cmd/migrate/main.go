package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"conjuntos-api/internal/config"
	"conjuntos-api/internal/database"
	"conjuntos-api/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

func main() {
	var (
		dir     = flag.String("dir", "migrations", "directory with migration files")
		down    = flag.Bool("down", false, "roll back one migration instead of migrating up")
		force   = flag.Int("force", -1, "force the schema version without running migrations")
		version = flag.Bool("version", false, "print the current schema version and exit")
	)
	flag.Parse()

	cfg, err := config.LoadMigration()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "conjuntos-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Error("Failed to connect to postgres", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		log.Error("Failed to create migration driver", zap.Error(err))
		os.Exit(1)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+*dir, cfg.Database.Database, driver)
	if err != nil {
		log.Error("Failed to initialize migrations", zap.Error(err))
		os.Exit(1)
	}

	switch {
	case *version:
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Error("Failed to read schema version", zap.Error(err))
			os.Exit(1)
		}
		log.Info("Schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
	case *force >= 0:
		if err := m.Force(*force); err != nil {
			log.Error("Failed to force schema version", zap.Error(err))
			os.Exit(1)
		}
		log.Info("Schema version forced", zap.Int("version", *force))
	case *down:
		if err := m.Steps(-1); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Info("No migrations to roll back")
				return
			}
			log.Error("Rollback failed", zap.Error(err))
			os.Exit(1)
		}
		log.Info("Rolled back one migration")
	default:
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Info("Schema already up to date")
				return
			}
			log.Error("Migration failed", zap.Error(err))
			os.Exit(1)
		}
		log.Info("Migrations applied")
	}
}
