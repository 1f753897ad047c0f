// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wirebound/wsecho/pkg/breaker"
	"github.com/wirebound/wsecho/pkg/handler"
	"github.com/wirebound/wsecho/pkg/metrics"
	"github.com/wirebound/wsecho/pkg/ratelimit"
)

// RateLimitedHandler wraps a handler with per-session and global message
// rate limiting. A limited message terminates its connection; the
// limiter state is dropped on disconnect.
type RateLimitedHandler struct {
	handler           handler.Handler
	perSessionLimiter *ratelimit.Limiter
	globalLimiter     *ratelimit.TokenBucket
	metrics           *metrics.Metrics
	logger            *slog.Logger
}

var _ handler.Handler = (*RateLimitedHandler)(nil)

// AuthConnect implements handler.Handler.
func (h *RateLimitedHandler) AuthConnect(ctx context.Context, hctx *handler.Context) error {
	return h.handler.AuthConnect(ctx, hctx)
}

// OnConnect implements handler.Handler.
func (h *RateLimitedHandler) OnConnect(ctx context.Context, hctx *handler.Context) error {
	return h.handler.OnConnect(ctx, hctx)
}

// OnMessage implements handler.Handler with rate limiting.
func (h *RateLimitedHandler) OnMessage(ctx context.Context, hctx *handler.Context, msgType handler.MessageType, payload *[]byte) error {
	// Check global rate limit
	if !h.globalLimiter.Allow() {
		h.metrics.RateLimitedMessages.WithLabelValues("global").Inc()
		h.logger.Warn("Global rate limit exceeded",
			slog.String("session", hctx.SessionID),
			slog.String("remote", hctx.RemoteAddr))
		return ratelimit.ErrRateLimitExceeded
	}

	// Check per-session rate limit
	if !h.perSessionLimiter.Allow(hctx.SessionID) {
		h.metrics.RateLimitedMessages.WithLabelValues("per_session").Inc()
		h.logger.Warn("Per-session rate limit exceeded",
			slog.String("session", hctx.SessionID),
			slog.String("remote", hctx.RemoteAddr))
		return ratelimit.ErrRateLimitExceeded
	}

	return h.handler.OnMessage(ctx, hctx, msgType, payload)
}

// OnDisconnect implements handler.Handler.
func (h *RateLimitedHandler) OnDisconnect(ctx context.Context, hctx *handler.Context) error {
	h.perSessionLimiter.Remove(hctx.SessionID)
	return h.handler.OnDisconnect(ctx, hctx)
}

// InstrumentedHandler wraps a handler with metrics instrumentation and a
// circuit breaker around the authorization hook.
type InstrumentedHandler struct {
	handler handler.Handler
	breaker *breaker.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger

	// connectedAt maps session ID to connect time, feeding the
	// connection duration histogram on disconnect.
	connectedAt sync.Map
}

var _ handler.Handler = (*InstrumentedHandler)(nil)

// AuthConnect implements handler.Handler. Repeated failures of the
// wrapped authorization hook trip the breaker to fast rejection.
func (h *InstrumentedHandler) AuthConnect(ctx context.Context, hctx *handler.Context) error {
	err := h.breaker.Call(func() error {
		return h.handler.AuthConnect(ctx, hctx)
	})

	status := "accepted"
	if err != nil {
		status = "rejected"
	}
	h.metrics.HandshakesTotal.WithLabelValues(status).Inc()

	return err
}

// OnConnect implements handler.Handler with metrics.
func (h *InstrumentedHandler) OnConnect(ctx context.Context, hctx *handler.Context) error {
	h.metrics.ActiveConnections.WithLabelValues(hctx.Protocol).Inc()
	h.metrics.TotalConnections.WithLabelValues(hctx.Protocol, "accepted").Inc()
	h.connectedAt.Store(hctx.SessionID, time.Now())

	return h.handler.OnConnect(ctx, hctx)
}

// OnMessage implements handler.Handler with metrics.
func (h *InstrumentedHandler) OnMessage(ctx context.Context, hctx *handler.Context, msgType handler.MessageType, payload *[]byte) error {
	h.metrics.ObserveMessage(string(msgType), len(*payload))

	return h.handler.OnMessage(ctx, hctx, msgType, payload)
}

// OnDisconnect implements handler.Handler with metrics.
func (h *InstrumentedHandler) OnDisconnect(ctx context.Context, hctx *handler.Context) error {
	h.metrics.ActiveConnections.WithLabelValues(hctx.Protocol).Dec()
	if start, ok := h.connectedAt.LoadAndDelete(hctx.SessionID); ok {
		duration := time.Since(start.(time.Time)).Seconds()
		h.metrics.ConnectionDuration.WithLabelValues(hctx.Protocol).Observe(duration)
	}

	return h.handler.OnDisconnect(ctx, hctx)
}
