// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wirebound/wsecho/pkg/breaker"
	"github.com/wirebound/wsecho/pkg/handler"
	"github.com/wirebound/wsecho/pkg/metrics"
	"github.com/wirebound/wsecho/pkg/ratelimit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestInstrumentedHandlerObservesConnectionDuration(t *testing.T) {
	m := metrics.New("wsecho_instrumented_test")
	h := &InstrumentedHandler{
		handler: &handler.NoopHandler{},
		breaker: breaker.New(breaker.Config{}),
		metrics: m,
		logger:  testLogger(),
	}

	ctx := context.Background()
	hctx := &handler.Context{SessionID: "s1", RemoteAddr: "127.0.0.1:1234", Protocol: "websocket"}

	if err := h.OnConnect(ctx, hctx); err != nil {
		t.Fatalf("OnConnect failed: %v", err)
	}
	if err := h.OnDisconnect(ctx, hctx); err != nil {
		t.Fatalf("OnDisconnect failed: %v", err)
	}

	// One duration sample for the websocket transport.
	if got := testutil.CollectAndCount(m.ConnectionDuration); got != 1 {
		t.Errorf("duration metric children = %d, want 1", got)
	}

	// The connect timestamp is dropped on disconnect.
	if _, ok := h.connectedAt.Load("s1"); ok {
		t.Error("connect timestamp retained after disconnect")
	}
}

func TestRateLimitedHandlerRejectsAndCleansUp(t *testing.T) {
	m := metrics.New("wsecho_ratelimited_test")
	limiter := ratelimit.NewLimiter(1, 1, 0)
	h := &RateLimitedHandler{
		handler:           &handler.NoopHandler{},
		perSessionLimiter: limiter,
		globalLimiter:     ratelimit.NewTokenBucket(100, 1),
		metrics:           m,
		logger:            testLogger(),
	}

	ctx := context.Background()
	hctx := &handler.Context{SessionID: "s1", RemoteAddr: "127.0.0.1:1234", Protocol: "websocket"}
	payload := []byte("x")

	if err := h.OnMessage(ctx, hctx, handler.MessageText, &payload); err != nil {
		t.Fatalf("first message rejected: %v", err)
	}
	if err := h.OnMessage(ctx, hctx, handler.MessageText, &payload); !errors.Is(err, ratelimit.ErrRateLimitExceeded) {
		t.Fatalf("err = %v, want ErrRateLimitExceeded", err)
	}

	// Disconnect drops the session's limiter state.
	if err := h.OnDisconnect(ctx, hctx); err != nil {
		t.Fatalf("OnDisconnect failed: %v", err)
	}
	if got := limiter.Stats(); got != 0 {
		t.Errorf("tracked sessions after disconnect = %d, want 0", got)
	}
}
