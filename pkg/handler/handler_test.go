// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"testing"
)

func TestNoopHandlerAllowsEverything(t *testing.T) {
	h := &NoopHandler{}
	ctx := context.Background()
	hctx := &Context{SessionID: "s", RemoteAddr: "127.0.0.1:1234", Protocol: "websocket"}

	payload := []byte("payload")
	tests := []struct {
		name string
		call func() error
	}{
		{name: "AuthConnect", call: func() error { return h.AuthConnect(ctx, hctx) }},
		{name: "OnConnect", call: func() error { return h.OnConnect(ctx, hctx) }},
		{name: "OnMessage text", call: func() error { return h.OnMessage(ctx, hctx, MessageText, &payload) }},
		{name: "OnMessage binary", call: func() error { return h.OnMessage(ctx, hctx, MessageBinary, &payload) }},
		{name: "OnDisconnect", call: func() error { return h.OnDisconnect(ctx, hctx) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err != nil {
				t.Errorf("%s returned %v", tt.name, err)
			}
		})
	}
}

func TestNoopHandlerLeavesPayloadIntact(t *testing.T) {
	h := &NoopHandler{}
	payload := []byte("untouched")

	if err := h.OnMessage(context.Background(), &Context{}, MessageText, &payload); err != nil {
		t.Fatalf("OnMessage returned %v", err)
	}
	if string(payload) != "untouched" {
		t.Errorf("payload = %q", payload)
	}
}
