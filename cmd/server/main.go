// Package main initializes and starts the everlog sync/admin server,
// setting up configuration, logging, database connections, repositories,
// services, handlers, and TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"time"

	nethttp "net/http"

	"github.com/kmezhova/everlog/internal/config"
	"github.com/kmezhova/everlog/internal/db"
	"github.com/kmezhova/everlog/internal/logger"
	"github.com/kmezhova/everlog/internal/repository"
	"github.com/kmezhova/everlog/internal/server/handler/http"
	"github.com/kmezhova/everlog/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()
	addr := options.Port
	dbName := options.DatabaseDSN

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init("Info"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	if options.AdminTokenSecret == "" {
		zapLogger.Fatal("admin token secret is required")
	}

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(dbName)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Background purge of soft-deleted entries and stale crash reports.
	db.StartCleaner(context.Background(), postgresDB,
		time.Hour,       // interval
		30*24*time.Hour, // entry retention: 30 days
		90*24*time.Hour, // crash retention: 90 days
		zapLogger,
	)

	// Initialize repositories for synchronization and admin triage.
	syncRepo := repository.NewPostgresSyncRepository(postgresDB)
	adminRepo := repository.NewPostgresAdminRepository(postgresDB)

	// Initialize business-logic services.
	syncService := service.NewSyncService(syncRepo)
	adminService := service.NewAdminService(adminRepo)

	// Create HTTP handlers for the sync and admin endpoints.
	syncHandler := &http.SyncHandler{SyncService: syncService}
	adminHandler := &http.AdminHandler{
		AdminService:  adminService,
		CleanupSecret: options.CleanupSecret,
	}
	crashHandler := &http.CrashHandler{AdminService: adminService}

	// Build the router with middleware and routes.
	router := http.NewRouter(syncHandler, adminHandler, crashHandler,
		options.AdminTokenSecret, zapLogger)

	server := &nethttp.Server{
		Addr:    addr,
		Handler: router,
	}

	// Serve TLS when a certificate is provisioned, plain HTTP otherwise
	// (local development behind a terminating proxy).
	cert, err := tls.LoadX509KeyPair("certs/server.crt", "certs/server.key")
	if err == nil {
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		zapLogger.Info("starting HTTPS server", zap.String("addr", addr))
		if err := server.ListenAndServeTLS("", ""); err != nil {
			zapLogger.Fatal("failed to start HTTPS server", zap.Error(err))
		}
		return
	}

	zapLogger.Warn("no TLS certificate found, serving plain HTTP", zap.Error(err))
	zapLogger.Info("starting HTTP server", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
