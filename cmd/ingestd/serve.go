package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/hivecast/ingestd/internal/boot"
	"github.com/hivecast/ingestd/internal/completion"
	"github.com/hivecast/ingestd/internal/config"
	"github.com/hivecast/ingestd/internal/eviction"
	"github.com/hivecast/ingestd/internal/handlers"
	"github.com/hivecast/ingestd/internal/schedule"
	"github.com/hivecast/ingestd/internal/server"
	"github.com/hivecast/ingestd/internal/transfers"
	"github.com/hivecast/ingestd/internal/version"
)

const purgeTaskName = "transfer_purge"

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background schedules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := fx.New(
				append(serveOptions(*configPath),
					fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
						return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
					}),
				)...,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func serveOptions(configPath string) []fx.Option {
	return []fx.Option{
		infraModule(configPath),
		domainModule,
		fx.Provide(
			provideServerHandler(providePingHandler),
			provideServerHandler(handlers.NewUploadsHandler),
			provideServerHandler(provideHooksHandler),
			provideServerHandler(handlers.NewEntriesHandler),
			provideServerHandler(handlers.NewJobsHandler),
			provideServerHandler(handlers.NewScheduleHandler),
			provideServerHandler(handlers.NewMetricsHandler),
			provideServerHandler(provideSwaggerHandler),
			provideServer,
		),
		fx.Invoke(
			startScheduleService,
			startServer,
		),
	}
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func providePingHandler(log *slog.Logger, conn *pgxpool.Pool) *handlers.PingHandler {
	return handlers.NewPingHandler(log, conn)
}

func provideHooksHandler(log *slog.Logger, cfg config.Config, router *completion.Router) *handlers.HooksHandler {
	return handlers.NewHooksHandler(log, router, cfg.Tus.UploadDir)
}

func provideSwaggerHandler(log *slog.Logger) *handlers.SwaggerHandler {
	return handlers.NewSwaggerHandler(log, "")
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	RuntimeConfig  *boot.RuntimeConfig
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.RuntimeConfig.ServerAddr, params.ServerHandlers...)
}

func startScheduleService(
	lc fx.Lifecycle,
	logger *slog.Logger,
	rc *boot.RuntimeConfig,
	scheduleService *schedule.Service,
	sweeper *eviction.Scheduler,
	transferService *transfers.Service,
) error {
	if err := scheduleService.Add(sweeper.Task(rc.EvictSchedule)); err != nil {
		return fmt.Errorf("schedule eviction: %w", err)
	}
	purge := schedule.Task{
		Name:    purgeTaskName,
		Pattern: rc.PurgeSchedule,
		Run: func(ctx context.Context) error {
			n, err := transferService.PurgeExpired(ctx)
			if n > 0 {
				logger.Info("expired transfers purged", slog.Int("count", n))
			}
			return err
		},
	}
	if err := scheduleService.Add(purge); err != nil {
		return fmt.Errorf("schedule transfer purge: %w", err)
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			scheduleService.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return scheduleService.Stop(ctx)
		},
	})
	return nil
}

func startServer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	srv *server.Server,
	shutdowner fx.Shutdowner,
) {
	fmt.Printf("Starting ingestd %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
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
