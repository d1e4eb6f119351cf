package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/orphanbars/realtime/internal/auth"
	"github.com/orphanbars/realtime/internal/config"
	"github.com/orphanbars/realtime/internal/database"
	"github.com/orphanbars/realtime/internal/hub"
	"github.com/orphanbars/realtime/internal/metrics"
	"github.com/orphanbars/realtime/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/barshub.yaml", "path to config file")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "barshub: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(configPath, config.RoleHub)
	if err != nil {
		return err
	}

	// Set up structured logging
	logger, err := cfg.Log.NewLogger(os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("starting barshub",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	authenticator := &auth.CookieAuthenticator{
		CookieName: cfg.Session.CookieName,
		Secrets:    cfg.Session.Secrets,
		Store:      auth.NewPGSessionStore(pool, cfg.Session.Table, logger),
	}

	h := hub.NewHub(hub.Config{
		BatchInterval:  cfg.Hub.BatchInterval,
		PingInterval:   cfg.Hub.PingInterval,
		WriteTimeout:   cfg.Hub.WriteTimeout,
		SendBuffer:     cfg.Hub.SendBuffer,
		ReadLimit:      cfg.Hub.ReadLimit,
		AllowedOrigins: cfg.Hub.AllowedOrigins,
	}, authenticator, metrics.NewHubMetrics(reg), logger)

	if err := h.Start(ctx); err != nil {
		return fmt.Errorf("start hub: %w", err)
	}

	rt := &routes{
		hub:         h,
		db:          pool,
		gatherer:    reg,
		metricsPath: cfg.Metrics.Path,
		logger:      logger,
	}
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           rt.handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := h.Stop(shutdownCtx); err != nil {
			logger.Error("hub stop error", "error", err)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("barshub stopped")
	return nil
}
