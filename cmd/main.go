// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/wirebound/wsecho"
	"github.com/wirebound/wsecho/examples/simple"
	"github.com/wirebound/wsecho/pkg/server/tcp"
	"github.com/wirebound/wsecho/pkg/websocket"
)

const (
	wsWithoutTLS = "WSECHO_WS_WITHOUT_TLS_"
	wsWithTLS    = "WSECHO_WS_WITH_TLS_"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	logger := slog.New(logHandler)

	// Create handler
	handler := simple.New(logger)

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file found, using environment variables")
	}

	// Start WebSocket echo listeners
	if err := startEchoServer(g, ctx, wsWithoutTLS, handler, logger); err != nil {
		logger.Warn("echo server without TLS not started", slog.String("error", err.Error()))
	}

	if err := startEchoServer(g, ctx, wsWithTLS, handler, logger); err != nil {
		logger.Warn("echo server with TLS not started", slog.String("error", err.Error()))
	}

	// Signal handler
	g.Go(func() error {
		return StopSignalHandler(ctx, cancel, logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("wsecho service terminated with error: %s", err))
	} else {
		logger.Info("wsecho service stopped")
	}
}

func startEchoServer(g *errgroup.Group, ctx context.Context, envPrefix string, handler *simple.Handler, logger *slog.Logger) error {
	cfg, err := wsecho.NewConfig(env.Options{Prefix: envPrefix})
	if err != nil {
		return err
	}

	// Skip if port is not configured
	if cfg.Port == "" {
		return fmt.Errorf("port not configured")
	}

	serverCfg := tcp.Config{
		Address:         cfg.Address(),
		TLSConfig:       cfg.TLSConfig,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxConnections:  cfg.MaxConnections,
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		Logger:          logger,
	}

	server := tcp.New(serverCfg, websocket.NewParser(logger), handler)

	g.Go(func() error {
		return server.Listen(ctx)
	})

	logger.Info("WebSocket echo server started", slog.String("prefix", envPrefix))
	return nil
}

func StopSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger) error {
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-c:
		logger.Info("received shutdown signal")
		cancel()
		return nil
	case <-ctx.Done():
		return nil
	}
}
