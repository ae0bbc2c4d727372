package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/data/db"
	apihttp "github.com/IchinoSanji/ArtVisionDeployFinal/internal/http"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/observability"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *apihttp.Server

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
}

// New connects storage and collaborators and wires the HTTP stack. cfg must
// already be validated.
func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	a := &App{Log: log, Cfg: cfg}

	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Otel.Environment,
		Version:     cfg.Otel.Version,
		Endpoint:    cfg.Otel.Endpoint,
		Insecure:    cfg.Otel.Insecure,
		Headers:     observability.ParseHeaders(cfg.Otel.Headers),
		SampleRatio: cfg.Otel.SampleRatio,
	})
	if cfg.Metrics.Enabled {
		a.Metrics = observability.NewMetrics()
	}

	pg, err := db.NewPostgresService(db.Config{
		Driver:        cfg.Postgres.Driver,
		DSN:           cfg.Postgres.DSN,
		Host:          cfg.Postgres.Host,
		Port:          cfg.Postgres.Port,
		User:          cfg.Postgres.User,
		Password:      cfg.Postgres.Password,
		Name:          cfg.Postgres.Name,
		SSLMode:       cfg.Postgres.SSLMode,
		MaxOpenConns:  cfg.Postgres.MaxOpenConns,
		MaxIdleConns:  cfg.Postgres.MaxIdleConns,
		SlowThreshold: cfg.Postgres.SlowThreshold,
	}, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a.pg = pg
	if err := pg.AutoMigrateAll(); err != nil {
		a.Close()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	a.DB = pg.DB()

	clients, err := wireClients(ctx, log, cfg, a.Metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients = clients

	a.Repos = wireRepos(a.DB, log)
	a.Services = wireServices(log, cfg, a.Repos, a.Clients, a.Metrics)
	handlers := wireHandlers(log, cfg, a.Services)
	middleware := wireMiddleware(log, cfg, a.Services, a.Metrics)
	a.Server = wireServer(log, cfg, handlers, middleware, a.Metrics)
	return a, nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests for
// up to server.shutdown_timeout.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Server.Addr())
		return a.Server.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := a.Cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		a.Log.Info("Shutting down HTTP server", "timeout", timeout.String())
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("Closing database failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
