// Command analyst serves skill half-life analytics over HTTP.
//
// It reads yearly job-market rows from a configured source (SQLite,
// PostgreSQL or an HTTP/JSON API), caches computed reports in memory or
// Redis, and exposes the ad-hoc analyses (half-life, forecast, pivots,
// simulations, skill gap) as JSON endpoints. A gRPC listener publishes the
// standard health service for orchestrators.
//
// Usage:
//
//	analyst \
//	  -source=sqlite -sqlite-path=/data/jobs.db \
//	  -storage=redis -redis-addr=redis:6379 \
//	  -catalog-file=/etc/skillhalflife/catalog.yaml
//
// Environment variables:
//
//	LISTEN         - HTTP listen address (default: :8080)
//	GRPC_LISTEN    - gRPC health listen address (default: :50051)
//	SOURCE         - sqlite, postgres, or http (default: sqlite)
//	SOURCE_*       - source options, e.g. SOURCE_URL, SOURCE_YEAR_PATH
//	DATABASE_URL   - PostgreSQL URL when SOURCE=postgres
//	STORAGE        - memory or redis (default: memory)
//	CACHE_TTL      - report cache TTL (default: 15m)
//	CACHE_MAX_ENTRIES - memory cache capacity (default: 10000)
//	CATALOG_FILE   - YAML pivot catalog, reloaded on change
//	RECENT_WINDOW  - recent-trend window in years (default: 12)
//	FORECAST_YEARS - projected years (default: 5)
//	LOG_LEVEL      - debug, info, warn, error (default: info)
//	LOG_FORMAT     - text, json (default: text)
package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/HatiCode/skillhalflife/cmd/analyst/config"
	"github.com/HatiCode/skillhalflife/cmd/analyst/logger"
	"github.com/HatiCode/skillhalflife/cmd/analyst/metrics"
	"github.com/HatiCode/skillhalflife/cmd/analyst/router"
	"github.com/HatiCode/skillhalflife/cmd/analyst/service"
	"github.com/HatiCode/skillhalflife/cmd/analyst/store"
	"github.com/HatiCode/skillhalflife/pkg/httpx"
	"github.com/HatiCode/skillhalflife/pkg/marketdata"
	"github.com/HatiCode/skillhalflife/pkg/pivot"
)

// version is set via ldflags at build time
var version = "dev"

const healthService = "skillhalflife.Analyst"

func main() {
	cfg := config.ParseFlags()

	log := logger.New(cfg)
	slog.SetDefault(log)

	log.Info("starting skillhalflife analyst",
		"version", version,
		"listen", cfg.Listen,
		"grpc_listen", cfg.GRPCListen,
		"source", cfg.Source,
		"storage", cfg.Storage,
		"tls_enabled", cfg.TLS.Enabled,
	)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := marketdata.New(ctx, cfg.Source, cfg.SourceConfig)
	if err != nil {
		log.Error("failed to open job market source", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	reportStore, err := store.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to create report cache", "error", err)
		os.Exit(1)
	}
	if stopper, ok := reportStore.(interface{ Stop() }); ok {
		defer stopper.Stop()
	}
	if closer, ok := reportStore.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Error("failed to close store", "error", err)
			}
		}()
	}

	m := metrics.New(prometheus.DefaultRegisterer, source.Name())
	svc := service.New(source, reportStore, m, log, service.Options{
		StartYear:     cfg.StartYear,
		RecentWindow:  cfg.RecentWindow,
		ForecastYears: cfg.ForecastYears,
	})

	if cfg.CatalogFile != "" {
		catalog, err := pivot.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			m.RecordCatalogReload(0, err)
			log.Error("failed to load pivot catalog", "path", cfg.CatalogFile, "error", err)
			os.Exit(1)
		}
		svc.SetCatalog(catalog)
		log.Info("pivot catalog loaded", "path", cfg.CatalogFile, "profiles", len(catalog))

		go func() {
			if err := pivot.WatchCatalog(ctx, cfg.CatalogFile, log, svc.SetCatalog); err != nil {
				log.Error("catalog watcher stopped", "error", err)
			}
		}()
	}

	mux := router.SetupRoutes(svc, prometheus.DefaultGatherer, log)
	handler := httpx.Chain(mux,
		httpx.RequestIDMiddleware,
		httpx.RecoveryMiddleware(log),
		httpx.LoggingMiddleware(log),
	)
	httpServer := httpx.NewServer(cfg.Listen, handler, log)
	if cfg.TLS.Enabled {
		tlsConfig, err := httpx.NewServerTLSConfig(cfg.TLS)
		if err != nil {
			log.Error("invalid TLS configuration", "error", err)
			os.Exit(1)
		}
		httpServer.EnableTLS(tlsConfig, cfg.TLS.CertFile, cfg.TLS.KeyFile)
	}

	serverErr := make(chan error, 2)
	httpDone := make(chan struct{})
	go func() {
		defer close(httpDone)
		if err := httpServer.Run(ctx); err != nil {
			serverErr <- err
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPCListen != "" {
		grpcServer = grpc.NewServer()

		healthServer := health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		healthServer.SetServingStatus(healthService, grpc_health_v1.HealthCheckResponse_SERVING)
		reflection.Register(grpcServer)

		lis, err := net.Listen("tcp", cfg.GRPCListen)
		if err != nil {
			log.Error("failed to listen", "address", cfg.GRPCListen, "error", err)
			os.Exit(1)
		}

		go func() {
			log.Info("grpc health server listening", "address", cfg.GRPCListen)
			if err := grpcServer.Serve(lis); err != nil {
				serverErr <- err
			}
		}()

		go watchHealth(ctx, svc, healthServer, log)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			log.Error("server failed", "error", err)
		}
	}

	log.Info("shutting down")
	cancel()

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	<-httpDone

	log.Info("shutdown complete")
}

// watchHealth mirrors cache and source health into the gRPC health service.
func watchHealth(ctx context.Context, svc *service.Service, hs *health.Server, log *slog.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
		}

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := svc.Ping(pingCtx)
		cancel()

		if ok := err == nil; ok != serving {
			serving = ok
			status := grpc_health_v1.HealthCheckResponse_SERVING
			if !ok {
				status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			}
			hs.SetServingStatus(healthService, status)
			if !ok {
				log.Warn("analyst unhealthy", "error", err)
			} else {
				log.Info("analyst healthy again")
			}
		}
	}
}
