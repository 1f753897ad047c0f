// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"bufio"
	"context"

	"github.com/wirebound/wsecho/pkg/handler"
)

// Parser drives the protocol leg of one connection. Implementations are
// responsible for:
//  1. Performing the one-time upgrade handshake on a fresh connection
//  2. Reading exactly one message per Parse call
//  3. Calling the appropriate handler methods
//  4. Writing exactly one response message and flushing it
//
// The server calls Upgrade once after accepting a connection, then calls
// Parse in a loop until it returns an error. Return io.EOF (wrapped or
// not) for clean closure by the peer; any other error closes the
// connection and is logged.
type Parser interface {
	// Upgrade performs the one-time protocol handshake. It must not
	// write anything to w when the handshake is rejected.
	Upgrade(ctx context.Context, r *bufio.Reader, w *bufio.Writer, h handler.Handler, hctx *handler.Context) error

	// Parse reads one message from r, processes it through h, and
	// writes the response to w. Each inbound message produces exactly
	// one outbound message before the next read begins.
	Parse(ctx context.Context, r *bufio.Reader, w *bufio.Writer, h handler.Handler, hctx *handler.Context) error
}
