// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

// Package parser defines the interface between the transport layer and
// the protocol engine.
//
// # Architecture Overview
//
// A Parser owns the wire protocol of one connection. It sits between the
// TCP server, which supplies the raw ordered byte stream, and the
// handler, which supplies business logic. The server knows nothing about
// framing; the parser knows nothing about sockets.
//
// # Connection Lifecycle
//
// For each accepted connection the server calls:
//
//	parser.Upgrade(ctx, r, w, handler, hctx)   // once
//	for {
//		parser.Parse(ctx, r, w, handler, hctx) // one message per call
//	}
//
// Upgrade converts the line-based request into a persistent message
// channel. Parse reads one message, consults the handler, and writes one
// response; the loop runs in strict request-response lockstep until
// Parse returns an error. All errors are terminal for the connection
// only; the server closes it and continues accepting.
//
// # Implementations
//
//   - websocket: RFC 6455 handshake and frame codec with echo semantics
package parser
