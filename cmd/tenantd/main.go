// Command tenantd serves the tenant-isolated HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/tenantkit/pkg/config"
	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
	"github.com/dmitrymomot/tenantkit/svc/api"
	"github.com/dmitrymomot/tenantkit/svc/platform"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg platform.Config
	if err := config.Load(&cfg); err != nil {
		logger.New().Error("failed to load configuration", logger.Error(err))
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Service),
		logger.WithContextExtractors(tenant.LoggerExtractor(), api.RequestIDExtractor()),
	)
	logger.SetAsDefault(log)

	p, err := platform.New(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		log.ErrorContext(ctx, "failed to start platform", logger.Error(err))
		return err
	}
	defer p.Close()

	if err := pg.Migrate(ctx, p.Pool, tenantdb.Migrations, tenantdb.MigrationsDir, cfg.PG, log); err != nil {
		log.ErrorContext(ctx, "failed to apply directory migrations", logger.Error(err))
		return err
	}

	deps := api.Deps{
		Logger:     log,
		Tenancy:    p.Middleware(),
		Admin:      p.Provisioning,
		AdminToken: cfg.AdminToken,
		Settings:   p.Settings,
		Checks:     p.Checks(),
		Gatherer:   prometheus.DefaultGatherer,
	}
	if p.ScopedCache != nil {
		deps.Counter = p.ScopedCache
	}

	srv := httpserver.New(cfg.HTTP, httpserver.WithLogger(log))
	if err := srv.Run(ctx, api.NewRouter(deps)); err != nil {
		log.ErrorContext(ctx, "http server stopped with error", logger.Error(err))
		return err
	}
	return nil
}
