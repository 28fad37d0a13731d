// Package main is the entry point for the update sync server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/microsoft/update-client-server-sync/internal/api"
	"github.com/microsoft/update-client-server-sync/internal/catalog"
	"github.com/microsoft/update-client-server-sync/internal/config"
	"github.com/microsoft/update-client-server-sync/internal/content"
	"github.com/microsoft/update-client-server-sync/internal/extended"
	"github.com/microsoft/update-client-server-sync/internal/metadata"
	"github.com/microsoft/update-client-server-sync/internal/soap"
	"github.com/microsoft/update-client-server-sync/internal/wusync"
	"github.com/microsoft/update-client-server-sync/pkg/logger"
)

const (
	serviceName    = "update-client-server-sync"
	serviceVersion = "1.0.0"
)

func main() {
	var configPath = flag.String("config", "", "Path to the JSON server configuration file")
	var propertiesPath = flag.String("properties", "", "Path to the server properties document echoed in GetConfig replies")
	var showVersion = flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", serviceName, serviceVersion)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath, *propertiesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	log.Info("starting update sync server", "service", serviceName, "version", serviceVersion)

	guard := catalog.NewGuard()
	approvals := catalog.NewApprovals()

	if cfg.Catalog.MetadataSourcePath != "" {
		source, err := catalog.LoadMemorySource(cfg.Catalog.MetadataSourcePath)
		if err != nil {
			log.Error("failed to load metadata source", "path", cfg.Catalog.MetadataSourcePath, "error", err)
			os.Exit(1)
		}
		guard.SetCatalog(source)
		log.Info("loaded metadata source", "path", cfg.Catalog.MetadataSourcePath)
	} else {
		log.Warn("no metadata_source_path configured; starting with an empty catalog")
	}

	fragmenter := metadata.New(4096)
	engine := wusync.NewEngine(guard, approvals, fragmenter, nil)
	responder := extended.NewResponder(guard, fragmenter, cfg.Content.ContentHTTPRoot, cfg.Properties)
	soapServer := soap.NewServer(engine, responder, log)

	var contentRouter *content.Router
	if cfg.ContentStoreConfigured() {
		store := content.NewFileStore(cfg.Content.ContentDir)
		contentRouter, err = content.NewRouter(guard, store)
		if err != nil {
			log.Error("failed to build content router", "error", err)
			os.Exit(1)
		}
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:        log,
		SOAPServer:    soapServer,
		ContentRouter: contentRouter,
		EnableMetrics: cfg.Metrics.Enabled,
	})

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server exited")
}
