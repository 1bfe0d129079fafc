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

	"github.com/Cimminelli1982/CRM/internal/config"
)

// RunMigrate drives schema migrations from embedded SQL files. The
// migrationsFS must carry the .sql files at its root. Commands are
// validated before anything touches the database so usage mistakes never
// require a reachable server.
func RunMigrate(logger *slog.Logger, cfg config.PostgresConfig, migrationsFS fs.FS, command string, args []string) error {
	switch command {
	case "up", "down", "version":
	case "force":
		if len(args) == 0 {
			return errors.New("force requires a version number")
		}
	default:
		return fmt.Errorf("unknown migrate command %q (use: up, down, version, force)", command)
	}
	if logger == nil {
		logger = slog.Default()
	}

	source, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, DSN(cfg))
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()
	m.Log = slogAdapter{logger}

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
		ver, dirty, _ := m.Version()
		logger.Info("migrations applied", slog.Uint64("version", uint64(ver)), slog.Bool("dirty", dirty))

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		logger.Info("migrations rolled back")

	case "version":
		ver, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("migrate version: %w", err)
		}
		logger.Info("schema version", slog.Uint64("version", uint64(ver)), slog.Bool("dirty", dirty))

	case "force":
		ver, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		if err := m.Force(ver); err != nil {
			return fmt.Errorf("migrate force: %w", err)
		}
		logger.Info("schema version forced", slog.Int("version", ver))
	}

	return nil
}

// slogAdapter lets golang-migrate write through the application logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Printf(format string, v ...any) {
	a.logger.Info(fmt.Sprintf(format, v...))
}

func (a slogAdapter) Verbose() bool { return false }
