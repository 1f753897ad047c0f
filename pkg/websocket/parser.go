// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package websocket

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"

	"github.com/wirebound/wsecho/pkg/handler"
	"github.com/wirebound/wsecho/pkg/parser"
	"github.com/wirebound/wsecho/pkg/pool"
)

// Parser implements the WebSocket leg of a connection: one upgrade
// handshake followed by an echo loop in request-response lockstep. It is
// stateless across connections and safe for concurrent use; all
// per-connection state lives in the reader, writer, and handler context
// the server passes in.
type Parser struct {
	logger  *slog.Logger
	buffers *pool.BufferPool
}

var _ parser.Parser = (*Parser)(nil)

// NewParser creates a WebSocket parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger:  logger,
		buffers: pool.New(0),
	}
}

// Upgrade performs the opening handshake on a fresh connection. The
// upgrade request headers are stored in hctx before AuthConnect runs, so
// handlers can authorize on them. A rejected handshake, whether from a
// missing client key or from AuthConnect, writes nothing to the peer.
func (p *Parser) Upgrade(ctx context.Context, r *bufio.Reader, w *bufio.Writer, h handler.Handler, hctx *handler.Context) error {
	headers, key, err := readUpgrade(r)
	if err != nil {
		return err
	}

	hctx.Protocol = "websocket"
	hctx.Header = headers

	if err := h.AuthConnect(ctx, hctx); err != nil {
		return fmt.Errorf("connection authorization failed: %w", err)
	}

	if err := writeUpgradeResponse(w, key); err != nil {
		return err
	}

	if err := h.OnConnect(ctx, hctx); err != nil {
		p.logger.Error("connect handler error",
			slog.String("session", hctx.SessionID),
			slog.String("error", err.Error()))
	}

	p.logger.Debug("websocket connection upgraded",
		slog.String("session", hctx.SessionID),
		slog.String("remote", hctx.RemoteAddr))

	return nil
}

// Parse reads one frame, notifies the handler, and echoes the message
// back. The handler may rewrite the payload before it is encoded; a
// handler error terminates the connection without a response.
func (p *Parser) Parse(ctx context.Context, r *bufio.Reader, w *bufio.Writer, h handler.Handler, hctx *handler.Context) error {
	msg, err := ReadMessage(r)
	if err != nil {
		return err
	}

	if err := h.OnMessage(ctx, hctx, msg.Type.handlerType(), &msg.Payload); err != nil {
		return fmt.Errorf("message handler rejected message: %w", err)
	}

	frame := AppendMessage(p.buffers.Get(), msg)
	_, err = w.Write(frame)
	p.buffers.Put(frame)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return w.Flush()
}
