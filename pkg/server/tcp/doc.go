// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

// Package tcp implements the protocol-agnostic TCP server.
//
// # Overview
//
// The server accepts connections and hands each one to a pluggable
// parser for the upgrade handshake and the message loop. It supports
// TLS termination, a connection limit, and graceful shutdown with
// connection draining.
//
// # Architecture
//
//	┌─────────┐         ┌─────────┐
//	│ Client  │ ←─TCP─→ │  Server │
//	└─────────┘         └─────────┘
//	                         ↓
//	                    ┌─────────┐
//	                    │ Parser  │
//	                    └─────────┘
//	                         ↓
//	                    ┌─────────┐
//	                    │ Handler │
//	                    └─────────┘
//
// # Connection Flow
//
//  1. Client connects, server accepts
//  2. Server spawns one goroutine for the connection
//  3. Parser performs the upgrade handshake (once)
//  4. Parser loop: read one message, write one response, repeat
//  5. On parser error or peer disconnect, handler.OnDisconnect runs
//  6. Connection closed; the server keeps accepting others
//
// Each connection owns its buffered reader and writer exclusively, so no
// locking is needed inside the protocol engine. Failures are isolated
// per connection and never stop the accept loop.
//
// # Graceful Shutdown
//
// When the context is cancelled:
//
//  1. Server stops accepting new connections
//  2. Server waits for existing connections (with timeout)
//  3. After ShutdownTimeout, forcefully closes remaining connections
//  4. Returns ErrShutdownTimeout if the timeout was exceeded
//
// # Example
//
//	p := websocket.NewParser(logger)
//	h := &handler.NoopHandler{}
//
//	cfg := tcp.Config{
//		Address:         ":8080",
//		ShutdownTimeout: 30 * time.Second,
//	}
//
//	server := tcp.New(cfg, p, h)
//	if err := server.Listen(ctx); err != nil {
//		log.Fatal(err)
//	}
package tcp
