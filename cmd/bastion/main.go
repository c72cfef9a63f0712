package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastion-lab/project-bastion/internal/accesslist"
	"github.com/bastion-lab/project-bastion/internal/analytics"
	corecfg "github.com/bastion-lab/project-bastion/internal/core/config"
	"github.com/bastion-lab/project-bastion/internal/core/storage/postgres"
	"github.com/bastion-lab/project-bastion/internal/ingest"
	"github.com/bastion-lab/project-bastion/internal/migrations"
	"github.com/bastion-lab/project-bastion/internal/report"
	"github.com/bastion-lab/project-bastion/internal/server"
)

func main() {
	configPath := flag.String("config", "bastion.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"server", fmtAddr(cfg.Server.Host, cfg.Server.Port),
		"reporting_enabled", cfg.Reporting.Enabled,
		"report_rules", len(cfg.ReportRules),
	)

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	if err := dbAdapter.ValidateSchema(); err != nil {
		slog.Error("Schema validation failed", "error", err)
		os.Exit(1)
	}

	// 3. Initialize per-table adapters over the shared pool
	loginStore := postgres.NewLoginEventAdapter(dbAdapter.DB())
	securityStore := postgres.NewSecurityEventAdapter(dbAdapter.DB())
	accessStore := postgres.NewAccessEntryAdapter(dbAdapter.DB())
	reportStore := postgres.NewReportAdapter(dbAdapter.DB())

	// 4. Initialize Analytics (dashboard queries + daily reports)
	engine := analytics.NewEngine(loginStore, securityStore, accessStore, reportStore, cfg.ReportRules)

	// 5. Initialize Ingest and Access-list services
	ingestSvc := ingest.NewService(loginStore, securityStore, cfg.Server.MaxBodySizeMB)
	accessSvc := accesslist.NewService(accessStore)

	// 6. Initialize Report scheduler + API
	scheduler := report.NewScheduler(engine, cfg.Reporting.Hour, cfg.Reporting.Minute)
	reportHandler := report.NewHandler(engine)

	// 7. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), cfg.Server.Mode)
	engine.RegisterRoutes(srv.Engine)
	ingestSvc.RegisterRoutes(srv.Engine)
	accessSvc.RegisterRoutes(srv.Engine)
	reportHandler.RegisterRoutes(srv.Engine)

	// 8. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Reporting.Enabled {
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				slog.Error("Report scheduler stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Report scheduler disabled by config")
	}

	// Signal handler -> triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
