// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package websocket

import "errors"

var (
	// ErrMissingSecKey indicates an upgrade request without the
	// Sec-WebSocket-Key header. The handshake aborts before writing any
	// response bytes and the connection is refused.
	ErrMissingSecKey = errors.New("websocket: handshake rejected: missing Sec-WebSocket-Key header")

	// ErrMaskRequired indicates an inbound frame with the mask bit unset.
	// RFC 6455 Section 5.3: client-to-server frames must be masked.
	ErrMaskRequired = errors.New("websocket: client frames must be masked")

	// ErrFrameTooLarge indicates a frame whose declared payload length
	// exceeds the implementation limit. The length field is
	// peer-controlled; it is validated before any payload allocation.
	ErrFrameTooLarge = errors.New("websocket: frame too large")
)
