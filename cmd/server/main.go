package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/unified-inbox/internal/config"
	"github.com/brandon/unified-inbox/internal/dispatch"
	"github.com/brandon/unified-inbox/internal/email"
	"github.com/brandon/unified-inbox/internal/inbox"
	"github.com/brandon/unified-inbox/internal/mcp"
	"github.com/brandon/unified-inbox/internal/metrics"
	"github.com/brandon/unified-inbox/internal/store"
	"github.com/brandon/unified-inbox/internal/tools"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("unified-inbox version %s\n", version)
		os.Exit(0)
	}

	// stdout carries the JSON-RPC stream
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.Info("Starting unified inbox server")

	db, err := store.Open(cfg.CachePath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open message store")
	}
	defer db.Close()

	messageStore := store.NewStore(db, logger)

	opts := inbox.DefaultOptions()
	opts.RefreshInterval = cfg.RefreshInterval
	opts.HiddenRefreshInterval = cfg.HiddenRefreshInterval

	session, err := inbox.NewSession(messageStore, inbox.NewRegistry(messageStore, logger), opts, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create inbox session")
	}

	deps := tools.Deps{
		Config:  cfg,
		Session: session,
		Store:   messageStore,
		Sender:  dispatch.NewDispatcher(cfg, logger),
		Logger:  logger,
	}

	var mailboxes *email.Manager
	if len(cfg.Mailboxes) > 0 {
		mailboxes = email.NewManager(cfg, messageStore, logger)
		defer mailboxes.Close()
		deps.Mailboxes = mailboxes
	}

	server := mcp.NewServer(tools.NewRegistry(deps), version, logger)

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := session.Run(ctx); err != nil {
			logger.WithError(err).Error("Inbox polling stopped")
		}
	}()

	if mailboxes != nil {
		go func() {
			if _, err := mailboxes.SyncAll(ctx); err != nil {
				logger.WithError(err).Warn("Initial mailbox sync incomplete")
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.WithField("addr", cfg.MetricsAddr).Info("Serving metrics")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	// Run server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run(ctx, os.Stdin, os.Stdout)
	}()

	// Wait for shutdown signal, stdin closing or error
	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
	case err := <-errChan:
		if err != nil {
			logger.WithError(err).Error("Server error")
		}
	}
	cancel()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		metricsServer.Shutdown(shutdownCtx) //nolint:errcheck
		shutdownCancel()
	}

	logger.Info("Shutting down unified inbox server")
}
