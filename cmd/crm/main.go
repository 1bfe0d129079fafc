package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/Cimminelli1982/CRM/internal/config"
	"github.com/Cimminelli1982/CRM/internal/contacts"
	"github.com/Cimminelli1982/CRM/internal/db"
	"github.com/Cimminelli1982/CRM/internal/dedup"
	"github.com/Cimminelli1982/CRM/internal/handlers"
	"github.com/Cimminelli1982/CRM/internal/ingest"
	"github.com/Cimminelli1982/CRM/internal/interactions"
	"github.com/Cimminelli1982/CRM/internal/logger"
	"github.com/Cimminelli1982/CRM/internal/meetings"
	"github.com/Cimminelli1982/CRM/internal/registrar"
	"github.com/Cimminelli1982/CRM/internal/server"
	"github.com/Cimminelli1982/CRM/internal/version"
)

func main() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideGuard,

			provideContactsService,
			provideInteractionsService,
			provideMeetingsService,
			providePipeline,
			provideRegistrar,

			provideServerHandler(provideWebhooksHandler),
			provideServerHandler(provideAdminHandler),
			provideServerHandler(handlers.NewStatusHandler),

			provideServer,
		),
		fx.Invoke(
			startRegistrar,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	return logger.Init(cfg.Log.Level, cfg.Log.Format)
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideGuard(lc fx.Lifecycle, cfg config.Config, log *slog.Logger) dedup.Guard {
	if cfg.Redis.Addr == "" {
		log.Info("replay guard disabled, duplicates stop at the database unique index")
		return dedup.Noop{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return dedup.NewRedisGuard(client, config.Duration(cfg.Redis.ReplayTTL, 72*time.Hour))
}

func provideContactsService(log *slog.Logger, conn *pgxpool.Pool) *contacts.Service {
	return contacts.NewService(log, conn)
}

func provideInteractionsService(log *slog.Logger, conn *pgxpool.Pool) *interactions.Service {
	return interactions.NewService(log, conn)
}

func provideMeetingsService(log *slog.Logger, conn *pgxpool.Pool) *meetings.Service {
	return meetings.NewService(log, conn)
}

func providePipeline(log *slog.Logger, conn *pgxpool.Pool, contactSvc *contacts.Service, interactionSvc *interactions.Service, meetingSvc *meetings.Service, guard dedup.Guard) *ingest.Pipeline {
	return ingest.NewPipeline(log, conn, contactSvc, interactionSvc, meetingSvc, guard)
}

func provideRegistrar(log *slog.Logger, cfg config.Config) *registrar.Service {
	var crm *registrar.CRMClient
	if cfg.Registrar.CRM.BaseURL != "" {
		crm = registrar.NewCRMClient(log, cfg.Registrar.CRM)
	}
	var watch *registrar.WatchClient
	if cfg.Registrar.Calendar.BaseURL != "" {
		watch = registrar.NewWatchClient(log, cfg.Registrar.Calendar)
	}
	return registrar.NewService(log, crm, watch, cfg.Registrar)
}

func provideWebhooksHandler(log *slog.Logger, pipeline *ingest.Pipeline, contactSvc *contacts.Service, cfg config.Config) *handlers.WebhooksHandler {
	return handlers.NewWebhooksHandler(log, pipeline, contactSvc, cfg.Sources)
}

func provideAdminHandler(contactSvc *contacts.Service, interactionSvc *interactions.Service, cfg config.Config) *handlers.AdminHandler {
	return handlers.NewAdminHandler(contactSvc, interactionSvc, cfg.Admin.Token)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, server.Options{
		Addr:      params.Config.Server.Addr,
		BodyLimit: params.Config.Server.BodyLimit,
		RateLimit: params.Config.Server.RateLimit,
	}, params.ServerHandlers...)
}

func startRegistrar(lc fx.Lifecycle, registrarService *registrar.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return registrarService.Bootstrap(ctx)
		},
		OnStop: func(ctx context.Context) error {
			registrarService.Stop()
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting CRM bridge %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
