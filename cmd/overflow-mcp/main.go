// Package main runs the Stack Overflow MCP server on stdio.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	flag "github.com/spf13/pflag"

	"github.com/WessleyAI/overflow-mcp/engine/toolserver"
	"github.com/WessleyAI/overflow-mcp/pkg/config"
)

var version = "0.1.0"

func main() {
	configPath := flag.StringP("config", "c", os.Getenv("OVERFLOW_CONFIG"), "YAML config file")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the environment")
	showVersion := flag.BoolP("version", "v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(toolserver.ServerName, version)
		return
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	level, _ := config.ParseLevel(cfg.LogLevel)

	// stdout carries the protocol; logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := toolserver.NewMCP(toolserver.Build(cfg, logger, nil), version)
	logger.Info("mcp server starting", "transport", "stdio",
		"window_max", cfg.RateLimit.Max, "window", cfg.RateLimit.Window)

	err := server.Run(ctx, &mcp.StdioTransport{})
	if ctx.Err() != nil {
		logger.Info("shutdown signal received")
		return nil
	}
	return err
}
