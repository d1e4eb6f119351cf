package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orphanbars/realtime/internal/config"
	"github.com/orphanbars/realtime/internal/connection"
	"github.com/orphanbars/realtime/internal/liveness"
	"github.com/orphanbars/realtime/internal/metrics"
	"github.com/orphanbars/realtime/internal/presence"
	"github.com/orphanbars/realtime/internal/tui"
	"github.com/orphanbars/realtime/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/barsclient.yaml", "path to config file")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	cfg, err := config.LoadAndValidate(configPath, config.RoleClient)
	if err != nil {
		return err
	}

	// The terminal belongs to the TUI, so logs go to a file.
	logFile, err := os.OpenFile(cfg.Client.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	logger, err := cfg.Log.NewLogger(logFile)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	wsURL, err := connection.EndpointURL(cfg.Client.PageURL)
	if err != nil {
		return fmt.Errorf("derive endpoint: %w", err)
	}
	logger.Info("starting barsclient",
		"version", version.Version,
		"commit", version.Commit,
		"endpoint", wsURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	if cfg.Client.MetricsAddr != "" {
		stopMetrics := serveMetrics(cfg.Client.MetricsAddr, reg, logger)
		defer stopMetrics()
	}

	session := connection.NewStaticSession(cfg.Session.CookieName, cfg.Client.SessionCookie)
	dialer := connection.NewWSDialer(connection.DialerConfig{
		URL:              wsURL,
		HandshakeTimeout: cfg.Client.HandshakeTimeout,
		WriteTimeout:     cfg.Client.WriteTimeout,
	}, session.Header, logger)

	bridge := tui.NewBridge(logger)
	defer bridge.Close()

	manager := connection.NewManager(connection.ManagerConfig{
		PingInterval:        cfg.Client.PingInterval,
		PongTimeout:         cfg.Client.PongTimeout,
		ReconnectBaseDelay:  cfg.Client.ReconnectBaseDelay,
		ReconnectMaxDelay:   cfg.Client.ReconnectMaxDelay,
		ForceReconnectDelay: cfg.Client.ForceReconnectDelay,
	}, dialer, session, bridge.ConnectionHandlers(), logger,
		connection.WithMetrics(metrics.NewClientMetrics(reg)),
	)
	defer manager.Disconnect()

	signals := liveness.NewSignals()
	monitor := liveness.NewMonitor(liveness.Config{
		StaleThreshold: cfg.Liveness.StaleThreshold,
		WarningWindow:  cfg.Liveness.WarningWindow,
		DimWindow:      cfg.Liveness.DimWindow,
		TickInterval:   cfg.Liveness.TickInterval,
	}, signals, bridge, logger,
		liveness.WithOnChange(bridge.LivenessChanged),
		liveness.WithMetrics(metrics.NewLivenessMetrics(reg)),
	)
	defer monitor.Close()

	baseURL, err := presence.BaseURL(cfg.Client.PageURL)
	if err != nil {
		return fmt.Errorf("derive api url: %w", err)
	}
	presenceClient := presence.NewClient(baseURL, session.Header, presence.WithLogger(logger))

	model := tui.New(tui.Deps{
		Conn:     manager,
		Monitor:  monitor,
		Signals:  signals,
		Session:  session,
		Presence: presenceClient,
		PeerID:   cfg.Client.PeerID,
		Logger:   logger,
	})

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithMouseAllMotion(),
	)
	go bridge.Run(ctx, p.Send)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	logger.Info("barsclient stopped")
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle(config.DefaultMetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("starting metrics server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
