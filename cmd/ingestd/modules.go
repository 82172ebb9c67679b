package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"

	"github.com/hivecast/ingestd/internal/boot"
	"github.com/hivecast/ingestd/internal/completion"
	"github.com/hivecast/ingestd/internal/config"
	"github.com/hivecast/ingestd/internal/db"
	dbsqlc "github.com/hivecast/ingestd/internal/db/sqlc"
	"github.com/hivecast/ingestd/internal/entries"
	"github.com/hivecast/ingestd/internal/eviction"
	"github.com/hivecast/ingestd/internal/intake"
	"github.com/hivecast/ingestd/internal/jobs"
	"github.com/hivecast/ingestd/internal/logger"
	"github.com/hivecast/ingestd/internal/metrics"
	"github.com/hivecast/ingestd/internal/schedule"
	"github.com/hivecast/ingestd/internal/storage"
	"github.com/hivecast/ingestd/internal/transfers"
)

const (
	dbConnectTimeout  = 10 * time.Second
	scheduleRunBudget = 30 * time.Minute
)

func infraModule(configPath string) fx.Option {
	return fx.Module(
		"infra",
		fx.Provide(
			func() (config.Config, error) { return provideConfig(configPath) },
			boot.ProvideRuntimeConfig,
			provideLogger,
			provideDBConn,
			provideDBQueries,
			metrics.New,
		),
	)
}

var domainModule = fx.Module(
	"domain",
	fx.Provide(
		fx.Annotate(entries.NewStore, fx.As(new(entries.Store))),
		fx.Annotate(jobs.NewStore, fx.As(new(jobs.Store))),
		fx.Annotate(provideTransferStore, fx.As(new(transfers.Store))),
		entries.NewService,
		jobs.NewDispatcher,
		transfers.NewService,
		provideStorageEngine,
		provideProcessor,
		provideRouter,
		provideCoordinator,
		provideFinalizer,
		provideEvictionScheduler,
		provideScheduleService,
	),
)

func provideConfig(path string) (config.Config, error) {
	if strings.TrimSpace(path) == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbConnectTimeout)
	defer cancel()
	conn, err := db.Open(ctx, cfg.Postgres)
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

func provideDBQueries(conn *pgxpool.Pool) *dbsqlc.Queries {
	return dbsqlc.New(conn)
}

func provideTransferStore(conn *pgxpool.Pool, queries *dbsqlc.Queries) *transfers.PGStore {
	return transfers.NewStore(conn, queries)
}

func provideStorageEngine(log *slog.Logger, rc *boot.RuntimeConfig, m *metrics.Metrics) *storage.Engine {
	// Per-attempt deadlines come from the engine; the client only bounds idle connections.
	client := &http.Client{Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}}
	return storage.NewEngine(log, storage.EngineConfig{
		Primary: storage.Endpoint{
			Node:    storage.NewHTTPNode(rc.PrimaryAPIURL, client),
			Gateway: rc.PrimaryGateway,
		},
		Fallback: storage.Endpoint{
			Node:    storage.NewHTTPNode(rc.FallbackAPIURL, client),
			Gateway: rc.FallbackGateway,
		},
		UploadTimeout: rc.UploadTimeout,
		MaxBytes:      rc.MaxUploadBytes,
	}, m)
}

func provideProcessor(log *slog.Logger, store entries.Store, engine *storage.Engine, dispatcher *jobs.Dispatcher, m *metrics.Metrics) *completion.Processor {
	return completion.NewProcessor(log, store, engine, dispatcher, m)
}

func provideRouter(log *slog.Logger, store entries.Store, transferService *transfers.Service, processor *completion.Processor) *completion.Router {
	return completion.NewRouter(log, store, transferService, processor)
}

func provideCoordinator(log *slog.Logger, rc *boot.RuntimeConfig, entryService *entries.Service, store transfers.Store) *intake.Coordinator {
	return intake.NewCoordinator(log, intake.CoordinatorConfig{
		Endpoint:    rc.TusEndpoint,
		TransferTTL: rc.TransferTTL,
		Limits:      intake.DefaultLimits,
	}, entryService, store)
}

func provideFinalizer(log *slog.Logger, store transfers.Store, processor *completion.Processor) *intake.Finalizer {
	return intake.NewFinalizer(log, store, processor)
}

func provideEvictionScheduler(log *slog.Logger, rc *boot.RuntimeConfig, store entries.Store, engine *storage.Engine, m *metrics.Metrics) *eviction.Scheduler {
	return eviction.NewScheduler(log, eviction.Config{
		Retention: rc.Retention,
		UnpinRate: rc.UnpinRate,
	}, store, engine, m)
}

func provideScheduleService(log *slog.Logger) *schedule.Service {
	return schedule.NewService(log, scheduleRunBudget)
}
