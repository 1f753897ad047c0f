// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

// Package handler provides the interface that links the protocol driver
// to business logic.
//
// # Architecture Overview
//
// The Handler interface is the bridge between the WebSocket protocol
// driver and application-level authorization and event handling. The
// driver calls Handler methods at fixed points of the connection
// lifecycle; applications implement the interface to plug in their own
// policy without touching the codec.
//
// # Data Flow
//
//	Client → Upgrade request → AuthConnect (may refuse) → 101 response → OnConnect
//	Client → Frame → OnMessage (may modify or reject) → Echo frame → Client
//	Connection ends → OnDisconnect
//
// # Context
//
// The Context struct carries session metadata across all handler calls:
//   - SessionID: unique identifier for this connection
//   - RemoteAddr: client's network address
//   - Protocol: wire protocol name
//   - Header: upgrade request headers, lower-cased keys
//
// # Implementation
//
// The NoopHandler provides a pass-through implementation for testing or
// when no authorization is needed. Handlers compose: wrappers that add
// rate limiting or metrics delegate to an inner Handler, as the
// production command demonstrates.
//
// # Example
//
//	type MyHandler struct {
//		authService AuthService
//	}
//
//	func (h *MyHandler) AuthConnect(ctx context.Context, hctx *handler.Context) error {
//		return h.authService.Authorize(hctx.Header["authorization"])
//	}
package handler
