// Package main serves the Stack Overflow tools over HTTP and, when NATS_URL
// is set, NATS request/reply.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	flag "github.com/spf13/pflag"

	"github.com/WessleyAI/overflow-mcp/engine/toolserver"
	"github.com/WessleyAI/overflow-mcp/pkg/config"
	"github.com/WessleyAI/overflow-mcp/pkg/metrics"
)

func main() {
	configPath := flag.StringP("config", "c", os.Getenv("OVERFLOW_CONFIG"), "YAML config file")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the environment")
	port := flag.StringP("port", "p", "", "listen port (overrides PORT)")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *port != "" {
		cfg.HTTP.Port = *port
	}
	level, _ := config.ParseLevel(cfg.LogLevel)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()
	dispatcher := toolserver.Build(cfg, logger, reg)

	// --- Optional NATS transport ---
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name(toolserver.ServerName))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		if _, err := toolserver.ServeNATS(nc, cfg.NATS.Prefix, dispatcher, logger); err != nil {
			return fmt.Errorf("nats subscribe: %w", err)
		}
	}

	// --- HTTP server ---
	srv := &http.Server{
		Addr: ":" + cfg.HTTP.Port,
		Handler: toolserver.NewHTTP(dispatcher, toolserver.HTTPOptions{
			CORSOrigin:   cfg.HTTP.CORSOrigin,
			InboundRPS:   cfg.HTTP.InboundRPS,
			InboundBurst: cfg.HTTP.InboundBurst,
			Metrics:      reg,
		}, logger),
		ReadTimeout: 15 * time.Second,
		// Tool calls can wait out several cooldowns.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.HTTP.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
