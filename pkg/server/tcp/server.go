// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package tcp

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	wserrors "github.com/wirebound/wsecho/pkg/errors"
	"github.com/wirebound/wsecho/pkg/handler"
	"github.com/wirebound/wsecho/pkg/parser"
)

var (
	// ErrShutdownTimeout is returned when graceful shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timeout exceeded")
)

// Default buffer sizes for per-connection buffered I/O.
const (
	defaultReadBufferSize  = 4096
	defaultWriteBufferSize = 4096
)

// Config holds the TCP server configuration.
type Config struct {
	// Address is the listen address (host:port)
	Address string

	// TLSConfig is optional TLS configuration for the listener
	TLSConfig *tls.Config

	// ShutdownTimeout is the maximum time to wait for active connections
	// to drain during graceful shutdown. After this timeout, remaining
	// connections are forcefully closed.
	ShutdownTimeout time.Duration

	// MaxConnections limits concurrently served connections.
	// Zero means no limit.
	MaxConnections int

	// TCPKeepAlive enables TCP keep-alive probes with the given period
	// when positive.
	TCPKeepAlive time.Duration

	// ReadBufferSize and WriteBufferSize set the per-connection buffered
	// reader/writer sizes. Zero selects the defaults.
	ReadBufferSize  int
	WriteBufferSize int

	// Logger for server events
	Logger *slog.Logger
}

// Server accepts TCP connections and serves each one with a pluggable
// protocol parser: one upgrade handshake, then a message loop until the
// parser reports an error or the peer disconnects. Each connection runs
// in its own goroutine and owns its buffers exclusively; no state is
// shared between connections.
type Server struct {
	config  Config
	parser  parser.Parser
	handler handler.Handler
	connSem chan struct{}
	wg      sync.WaitGroup

	mu   sync.Mutex
	addr net.Addr
}

// Addr returns the bound listener address, or nil before Listen has
// bound it. Useful when listening on port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// New creates a new TCP server with the given configuration, parser, and handler.
func New(cfg Config, p parser.Parser, h handler.Handler) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = defaultReadBufferSize
	}
	if cfg.WriteBufferSize <= 0 {
		cfg.WriteBufferSize = defaultWriteBufferSize
	}

	s := &Server{
		config:  cfg,
		parser:  p,
		handler: h,
	}
	if cfg.MaxConnections > 0 {
		s.connSem = make(chan struct{}, cfg.MaxConnections)
	}
	return s
}

// Listen starts the TCP server and blocks until the context is cancelled.
// It implements graceful shutdown with connection draining.
func (s *Server) Listen(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}

	// Wrap with TLS if configured
	if s.config.TLSConfig != nil {
		listener = tls.NewListener(listener, s.config.TLSConfig)
		s.config.Logger.Info("TLS enabled", slog.String("address", s.config.Address))
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()

	s.config.Logger.Info("TCP server started", slog.String("address", listener.Addr().String()))

	// Active connections get their own context so forced closure during
	// shutdown is decoupled from the accept loop's context.
	connCtx, connCancel := context.WithCancel(context.Background())
	defer connCancel()

	// Accept loop
	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					// Expected error during shutdown
					return
				default:
					s.config.Logger.Error("failed to accept connection", slog.String("error", err.Error()))
					continue
				}
			}

			if s.connSem != nil {
				select {
				case s.connSem <- struct{}{}:
				default:
					s.config.Logger.Warn("connection limit reached, rejecting",
						slog.String("remote", conn.RemoteAddr().String()))
					conn.Close()
					continue
				}
			}

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				if s.connSem != nil {
					defer func() { <-s.connSem }()
				}
				if err := s.handleConn(connCtx, conn); err != nil && !errors.Is(err, io.EOF) {
					s.config.Logger.Debug("connection handler error",
						slog.String("remote", conn.RemoteAddr().String()),
						slog.String("error", err.Error()))
				}
			}()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	s.config.Logger.Info("shutdown signal received, closing listener")

	// Close the listener to stop accepting new connections
	if err := listener.Close(); err != nil {
		s.config.Logger.Error("error closing listener", slog.String("error", err.Error()))
	}

	// Wait for accept loop to finish
	<-acceptDone

	// Wait for active connections to drain with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.config.Logger.Info("all connections closed gracefully")
		return nil
	case <-time.After(s.config.ShutdownTimeout):
		s.config.Logger.Warn("shutdown timeout exceeded, forcing connection closure")
		connCancel()
		select {
		case <-done:
			return ErrShutdownTimeout
		case <-time.After(1 * time.Second):
			return ErrShutdownTimeout
		}
	}
}

// handleConn processes a single client connection:
//  1. Builds a handler context with connection metadata
//  2. Runs the parser's one-time upgrade handshake
//  3. Loops the parser over one message per iteration
//  4. Notifies the handler and closes the connection when done
func (s *Server) handleConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	sessionID := uuid.New().String()

	hctx := &handler.Context{
		SessionID:  sessionID,
		RemoteAddr: conn.RemoteAddr().String(),
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok && s.config.TCPKeepAlive > 0 {
		if err := tcpConn.SetKeepAlive(true); err == nil {
			_ = tcpConn.SetKeepAlivePeriod(s.config.TCPKeepAlive)
		}
	}

	if tlsConn, ok := conn.(*tls.Conn); ok {
		if err := tlsConn.Handshake(); err != nil {
			return fmt.Errorf("TLS handshake failed: %w", err)
		}
	}

	// Each connection exclusively owns one buffered reader/writer pair.
	br := bufio.NewReaderSize(conn, s.config.ReadBufferSize)
	bw := bufio.NewWriterSize(conn, s.config.WriteBufferSize)

	if err := s.parser.Upgrade(ctx, br, bw, s.handler, hctx); err != nil {
		s.config.Logger.Debug("handshake failed",
			slog.String("session", sessionID),
			slog.String("remote", hctx.RemoteAddr),
			slog.String("error", err.Error()))
		return wserrors.New("handshake", sessionID, hctx.RemoteAddr, err)
	}

	s.config.Logger.Debug("connection established",
		slog.String("session", sessionID),
		slog.String("remote", hctx.RemoteAddr))

	streamErr := s.stream(ctx, br, bw, hctx)

	// Notify disconnect
	if err := s.handler.OnDisconnect(context.Background(), hctx); err != nil {
		s.config.Logger.Error("disconnect handler error",
			slog.String("session", sessionID),
			slog.String("error", err.Error()))
	}

	s.config.Logger.Debug("connection closed",
		slog.String("session", sessionID))

	return streamErr
}

// stream runs the message loop until an error or context cancellation.
func (s *Server) stream(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, hctx *handler.Context) error {
	for {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Parse one message
		if err := s.parser.Parse(ctx, br, bw, s.handler, hctx); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return wserrors.New("stream", hctx.SessionID, hctx.RemoteAddr, err)
		}
	}
}
