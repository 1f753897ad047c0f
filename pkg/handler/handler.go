// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package handler

import "context"

// MessageType identifies the payload interpretation of a message event.
type MessageType string

const (
	// MessageText is an event for a UTF-8 text message.
	MessageText MessageType = "text"

	// MessageBinary is an event for a binary message.
	MessageBinary MessageType = "binary"
)

// Context contains connection metadata extracted during the upgrade
// handshake. It is passed to every Handler method for this connection.
type Context struct {
	// SessionID is a unique identifier for this connection
	SessionID string

	// RemoteAddr is the client's network address
	RemoteAddr string

	// Protocol indicates the wire protocol (websocket)
	Protocol string

	// Header holds the upgrade request headers keyed by lower-cased name
	Header map[string]string
}

// Handler defines authorization and notification callbacks for the
// connection lifecycle. The protocol driver calls these methods at the
// appropriate points:
//
//   - AuthConnect runs after the upgrade request is parsed but before
//     the 101 response is written. Returning an error refuses the
//     upgrade; the client receives nothing and the connection closes.
//   - OnMessage runs for every decoded message before it is echoed. The
//     payload may be modified via its pointer; returning an error
//     terminates the connection without sending a response, which is how
//     guard wrappers (rate limiting, policy) reject traffic.
//   - OnConnect and OnDisconnect are notification hooks for audit
//     logging or metrics. Errors from them are logged, not propagated.
type Handler interface {
	// AuthConnect authorizes an upgrade attempt for the connection
	// described by hctx, including its request headers.
	AuthConnect(ctx context.Context, hctx *Context) error

	// OnConnect is called after the handshake response has been sent.
	OnConnect(ctx context.Context, hctx *Context) error

	// OnMessage is called for each inbound message before the echo
	// response is encoded. The payload can be modified via its pointer.
	OnMessage(ctx context.Context, hctx *Context, msgType MessageType, payload *[]byte) error

	// OnDisconnect is called when the connection ends, gracefully or due
	// to an error.
	OnDisconnect(ctx context.Context, hctx *Context) error
}

// NoopHandler is a Handler implementation that allows all operations.
// Useful for testing or when no authorization is needed.
type NoopHandler struct{}

var _ Handler = (*NoopHandler)(nil)

func (h *NoopHandler) AuthConnect(ctx context.Context, hctx *Context) error {
	return nil
}

func (h *NoopHandler) OnConnect(ctx context.Context, hctx *Context) error {
	return nil
}

func (h *NoopHandler) OnMessage(ctx context.Context, hctx *Context, msgType MessageType, payload *[]byte) error {
	return nil
}

func (h *NoopHandler) OnDisconnect(ctx context.Context, hctx *Context) error {
	return nil
}
