package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	migrations "github.com/Cimminelli1982/CRM/db"
	"github.com/Cimminelli1982/CRM/internal/config"
	"github.com/Cimminelli1982/CRM/internal/contacts"
	"github.com/Cimminelli1982/CRM/internal/db"
	"github.com/Cimminelli1982/CRM/internal/export"
	"github.com/Cimminelli1982/CRM/internal/interactions"
	"github.com/Cimminelli1982/CRM/internal/logger"
	"github.com/Cimminelli1982/CRM/internal/registrar"
	"github.com/Cimminelli1982/CRM/internal/version"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "crmctl",
		Short: "Operations tool for the CRM webhook bridge",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml (default: CONFIG_PATH or ./config.toml)")

	root.AddCommand(migrateCmd())
	root.AddCommand(registerCmd())
	root.AddCommand(renewWatchCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func load() (config.Config, *slog.Logger, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.Init(cfg.Log.Level, cfg.Log.Format), nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down|version|force N]",
		Short: "Apply or roll back database migrations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			migrationsFS, err := migrations.Migrations()
			if err != nil {
				return fmt.Errorf("migrations fs: %w", err)
			}
			return db.RunMigrate(log, cfg.Postgres, migrationsFS, args[0], args[1:])
		},
	}
}

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Register webhook subscriptions with the CRM provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			if cfg.Registrar.CRM.BaseURL == "" {
				return fmt.Errorf("registrar.crm.base_url is not configured")
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return registrar.NewCRMClient(log, cfg.Registrar.CRM).RegisterSubscriptions(ctx)
		},
	}
}

func renewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renew-watch",
		Short: "Renew the calendar provider's push channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			if cfg.Registrar.Calendar.BaseURL == "" {
				return fmt.Errorf("registrar.calendar.base_url is not configured")
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return registrar.NewWatchClient(log, cfg.Registrar.Calendar).RenewWatch(ctx)
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write CRM data to XLSX workbooks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "contacts [file]",
		Short: "Export all contacts (default contacts.xlsx)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := "contacts.xlsx"
			if len(args) > 0 {
				out = args[0]
			}
			return runExport(out, func(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) ([]byte, error) {
				items, err := contacts.NewService(log, pool).ListAll(ctx)
				if err != nil {
					return nil, err
				}
				return export.Contacts(items)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "interactions [file]",
		Short: "Export the interaction log (default interactions.xlsx)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := "interactions.xlsx"
			if len(args) > 0 {
				out = args[0]
			}
			return runExport(out, func(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) ([]byte, error) {
				items, err := interactions.NewService(log, pool).ListAll(ctx)
				if err != nil {
					return nil, err
				}
				return export.Interactions(items)
			})
		},
	})

	return cmd
}

func runExport(path string, build func(context.Context, *pgxpool.Pool, *slog.Logger) ([]byte, error)) error {
	cfg, log, err := load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Open(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	data, err := build(ctx, pool, log)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Info("export written", slog.String("file", path), slog.Int("bytes", len(data)))
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("crmctl", version.GetInfo())
		},
	}
}
