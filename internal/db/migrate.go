package db

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/hivecast/ingestd/internal/config"
)

// MigrateCommands lists the accepted RunMigrate commands.
var MigrateCommands = []string{"up", "down", "version", "force", "steps"}

// RunMigrate applies or rolls back the schema for entries, pending transfers and processing jobs.
// The migrationsFS should contain .sql files at its root (see db.Migrations).
func RunMigrate(logger *slog.Logger, cfg config.PostgresConfig, migrationsFS fs.FS, command string, args []string) error {
	if err := checkMigrateCommand(command, args); err != nil {
		return err
	}
	if logger == nil {
		logger = slog.Default()
	}

	sourceDriver, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, DSN(cfg))
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	m.Log = &migrateLogger{logger: logger}

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		logger.Info("all migrations rolled back")
		return nil
	case "steps":
		n, _ := strconv.Atoi(args[0])
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case "force":
		version, _ := strconv.Atoi(args[0])
		if err := m.Force(version); err != nil {
			return fmt.Errorf("migrate force: %w", err)
		}
	}

	ver, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migrate version: %w", err)
	}
	logger.Info("schema version", slog.String("command", command), slog.Uint64("version", uint64(ver)), slog.Bool("dirty", dirty))
	return nil
}

func checkMigrateCommand(command string, args []string) error {
	switch command {
	case "up", "down", "version":
		return nil
	case "force", "steps":
		if len(args) == 0 {
			return fmt.Errorf("%s requires a number argument", command)
		}
		if _, err := strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("invalid %s argument %q: %w", command, args[0], err)
		}
		return nil
	default:
		return fmt.Errorf("unknown migrate command: %s (use: up, down, version, force N, steps N)", command)
	}
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
