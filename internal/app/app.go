package app

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/neurobridge-coursestore/internal/data/db"
	apphttp "github.com/yungbote/neurobridge-coursestore/internal/http"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/validation"
	"github.com/yungbote/neurobridge-coursestore/internal/observability"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.Service
	Clients  Clients
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics
	Server   *apphttp.Server

	otelShutdown func(context.Context) error
}

// New opens storage, migrates it and wires every layer. Close releases
// what New acquired.
func New(ctx context.Context, cfg Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	database, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := db.Migrate(database.DB()); err != nil {
		_ = database.Close()
		log.Sync()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = database.Close()
		log.Sync()
		return nil, err
	}

	metrics := observability.Init(log, cfg.MetricsEnabled)
	if metrics != nil {
		if sqlDB, err := database.DB().DB(); err == nil {
			if err := metrics.RegisterDBStats(sqlDB, cfg.DB.Driver); err != nil {
				log.Warn("db stats collector not registered", "error", err)
			}
		}
	}
	otelShutdown := observability.InitOTel(ctx, log, cfg.OtelConfig())

	reposet := wireRepos(database.DB(), log)
	serviceset := wireServices(database.DB(), log, cfg, reposet, clients, metrics)
	handlerset := wireHandlers(log, database, clients, serviceset)
	middleware := wireMiddleware(log)

	return &App{
		Log:          log,
		Cfg:          cfg,
		DB:           database,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		Server:       wireServer(log, cfg, metrics, handlerset, middleware),
		otelShutdown: otelShutdown,
	}, nil
}

// Serve runs the HTTP server until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Server.Run(gctx, net.JoinHostPort("", a.Cfg.Port))
	})
	return g.Wait()
}

// CheckAll runs the tree invariant checks over every course.
func (a *App) CheckAll(ctx context.Context) ([]validation.InvariantReport, error) {
	return a.Services.CourseTree.CheckAllInvariants(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	a.Clients.Close()
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && a.Log != nil {
			a.Log.Warn("db close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

// Migrate opens storage, applies the schema and closes it again.
func Migrate(cfg Config) error {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	database, err := db.Open(cfg.DB, log)
	if err != nil {
		return fmt.Errorf("init db: %w", err)
	}
	defer database.Close()
	if err := db.Migrate(database.DB()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("schema migrated", "driver", database.Driver())
	return nil
}
