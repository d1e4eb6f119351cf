// streamtest connects to the realtime hub without the TUI and prints every
// frame it receives to the console.
// Usage: go run ./cmd/streamtest --config configs/barsclient.yaml
//
// Required environment variables:
//
//	BARS_SESSION_COOKIE - signed connect.sid value of a logged-in session
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/orphanbars/realtime/internal/config"
	"github.com/orphanbars/realtime/internal/connection"
	"github.com/orphanbars/realtime/internal/protocol"
)

func main() {
	configPath := flag.String("config", "configs/barsclient.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full frame JSON")
	typingEvery := flag.Duration("typing", 0, "send a typing frame to client.peer_id at this interval (0 disables)")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadAndValidate(*configPath, config.RoleClient)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	wsURL, err := connection.EndpointURL(cfg.Client.PageURL)
	if err != nil {
		logger.Error("failed to derive endpoint", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := connection.NewStaticSession(cfg.Session.CookieName, cfg.Client.SessionCookie)
	if !session.Authenticated() {
		logger.Error("session cookie required", "env", "BARS_SESSION_COOKIE")
		os.Exit(1)
	}

	dialer := connection.NewWSDialer(connection.DialerConfig{
		URL:              wsURL,
		HandshakeTimeout: cfg.Client.HandshakeTimeout,
		WriteTimeout:     cfg.Client.WriteTimeout,
	}, session.Header, logger)

	var received atomic.Int64
	frames := make(chan protocol.Frame, 1000)
	manager := connection.NewManager(connection.ManagerConfig{
		PingInterval:        cfg.Client.PingInterval,
		PongTimeout:         cfg.Client.PongTimeout,
		ReconnectBaseDelay:  cfg.Client.ReconnectBaseDelay,
		ReconnectMaxDelay:   cfg.Client.ReconnectMaxDelay,
		ForceReconnectDelay: cfg.Client.ForceReconnectDelay,
	}, dialer, session, connection.Handlers{
		OnConnect:    func() { logger.Info("connected", "url", wsURL) },
		OnDisconnect: func() { logger.Warn("disconnected") },
		OnMessage: func(f protocol.Frame) {
			select {
			case frames <- f:
			default:
				logger.Warn("console backlog full, dropping frame", "type", f.FrameType())
			}
		},
	}, logger)

	logger.Info("starting connection manager", "url", wsURL)
	manager.Connect()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case f := <-frames:
				received.Add(1)
				printFrame(f, *verbose)
			}
		}
	}()

	if *typingEvery > 0 && cfg.Client.PeerID != "" {
		go func() {
			ticker := time.NewTicker(*typingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					manager.SendTyping(cfg.Client.PeerID)
				}
			}
		}()
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Info("stats",
					"state", manager.State(),
					"health", manager.Health(),
					"reconnect_attempt", manager.ReconnectAttempt(),
					"received", received.Load(),
					"backlog", len(frames),
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")
	manager.Disconnect()
	logger.Info("shutdown complete")
}

func printFrame(f protocol.Frame, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(f, "", "  ")
		fmt.Printf("[%s] %s\n", f.FrameType(), data)
		return
	}

	switch f := f.(type) {
	case protocol.ConnectedFrame:
		fmt.Printf("[CONNECTED] user=%s\n", f.UserID)
	case protocol.NewMessageFrame:
		fmt.Printf("[MESSAGE] bytes=%d\n", len(f.Message))
	case protocol.TypingFrame:
		fmt.Printf("[TYPING] sender=%s name=%s\n", f.SenderID, f.SenderUsername)
	default:
		fmt.Printf("[%s]\n", f.FrameType())
	}
}
