// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

// Package main provides a production-ready echo server deployment with
// metrics, health checks, a circuit breaker, and rate limiting.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/wirebound/wsecho/examples/simple"
	"github.com/wirebound/wsecho/pkg/breaker"
	"github.com/wirebound/wsecho/pkg/health"
	"github.com/wirebound/wsecho/pkg/metrics"
	"github.com/wirebound/wsecho/pkg/ratelimit"
	"github.com/wirebound/wsecho/pkg/server/tcp"
	"github.com/wirebound/wsecho/pkg/websocket"
)

// Config holds the application configuration.
type Config struct {
	// Listener
	Address string `env:"ADDRESS" envDefault:":8080"`

	// Observability
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9090"`
	HealthPort  int    `env:"HEALTH_PORT"  envDefault:"8081"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT"   envDefault:"json"`

	// Resource Limits
	MaxConnections int `env:"MAX_CONNECTIONS" envDefault:"10000"`
	MaxGoroutines  int `env:"MAX_GOROUTINES"  envDefault:"50000"`

	// Circuit Breaker
	BreakerMaxFailures  int           `env:"BREAKER_MAX_FAILURES"  envDefault:"5"`
	BreakerResetTimeout time.Duration `env:"BREAKER_RESET_TIMEOUT" envDefault:"60s"`

	// Rate Limiting
	RateLimitCapacity  int64 `env:"RATE_LIMIT_CAPACITY"  envDefault:"100"`
	RateLimitRefill    int64 `env:"RATE_LIMIT_REFILL"    envDefault:"10"`
	GlobalRateCapacity int64 `env:"GLOBAL_RATE_CAPACITY" envDefault:"10000"`
	GlobalRateRefill   int64 `env:"GLOBAL_RATE_REFILL"   envDefault:"1000"`

	// Timeouts
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

func main() {
	// Load configuration
	cfg := Config{}
	if err := godotenv.Load(); err != nil {
		// .env file is optional
	}
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting wsecho in production mode",
		slog.String("address", cfg.Address),
		slog.Int("max_connections", cfg.MaxConnections))

	// Create metrics
	m := metrics.New("wsecho")

	// Start metrics server
	go startMetricsServer(cfg.MetricsPort, logger)

	// Create health checker
	healthChecker := health.NewChecker(10 * time.Second)

	healthChecker.Register("goroutines", func(ctx context.Context) error {
		count := runtime.NumGoroutine()
		if count > cfg.MaxGoroutines {
			return fmt.Errorf("too many goroutines: %d > %d", count, cfg.MaxGoroutines)
		}
		m.GoroutinesActive.WithLabelValues("all").Set(float64(count))
		return nil
	})

	healthChecker.Register("memory", func(ctx context.Context) error {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		m.MemoryAllocated.WithLabelValues("heap").Set(float64(stats.HeapAlloc))
		m.MemoryAllocated.WithLabelValues("sys").Set(float64(stats.Sys))
		return nil
	})

	// Create rate limiters
	perSessionLimiter := ratelimit.NewLimiter(cfg.RateLimitCapacity, cfg.RateLimitRefill, cfg.MaxConnections)
	globalLimiter := ratelimit.NewTokenBucket(cfg.GlobalRateCapacity, cfg.GlobalRateRefill)

	healthChecker.Register("rate_limiter", func(ctx context.Context) error {
		sessions := perSessionLimiter.Stats()
		if sessions >= cfg.MaxConnections {
			return fmt.Errorf("rate limiter session table full: %d tracked sessions", sessions)
		}
		return nil
	})

	// Start health server
	go startHealthServer(cfg.HealthPort, healthChecker, logger)

	// Create circuit breaker guarding the auth hook
	cb := breaker.New(breaker.Config{
		MaxFailures:      cfg.BreakerMaxFailures,
		ResetTimeout:     cfg.BreakerResetTimeout,
		SuccessThreshold: 2,
	})

	cb.OnStateChange(func(from, to breaker.State) {
		logger.Warn("Circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()))
		m.CircuitBreakerState.WithLabelValues("auth").Set(float64(to))
		if to == breaker.StateOpen {
			m.CircuitBreakerTrips.WithLabelValues("auth").Inc()
		}
	})

	// Compose handlers: base → rate limited → instrumented
	baseHandler := simple.New(logger)
	rateLimitedHandler := &RateLimitedHandler{
		handler:           baseHandler,
		perSessionLimiter: perSessionLimiter,
		globalLimiter:     globalLimiter,
		metrics:           m,
		logger:            logger,
	}
	instrumentedHandler := &InstrumentedHandler{
		handler: rateLimitedHandler,
		breaker: cb,
		metrics: m,
		logger:  logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	server := tcp.New(tcp.Config{
		Address:         cfg.Address,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxConnections:  cfg.MaxConnections,
		Logger:          logger,
	}, websocket.NewParser(logger), instrumentedHandler)

	g.Go(func() error {
		return server.Listen(ctx)
	})

	g.Go(func() error {
		return stopSignalHandler(ctx, cancel, logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error("service terminated with error", slog.String("error", err.Error()))
	} else {
		logger.Info("service stopped")
	}
}

func setupLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h)
}

func startMetricsServer(port int, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Metrics server started", slog.String("address", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server failed", slog.String("error", err.Error()))
	}
}

func startHealthServer(port int, checker *health.Checker, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.HTTPHandler())
	mux.HandleFunc("/livez", health.LivenessHandler())
	mux.HandleFunc("/readyz", checker.ReadinessHandler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Health server started", slog.String("address", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Health server failed", slog.String("error", err.Error()))
	}
}

func stopSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger) error {
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
