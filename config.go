// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

// Package wsecho provides shared server configuration loaded from the
// environment.
package wsecho

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the per-listener configuration, populated from environment
// variables. An empty Port disables the listener.
type Config struct {
	Host            string        `env:"HOST"              envDefault:""`
	Port            string        `env:"PORT"              envDefault:""`
	CertFile        string        `env:"CERT_FILE"         envDefault:""`
	KeyFile         string        `env:"KEY_FILE"          envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"  envDefault:"30s"`
	MaxConnections  int           `env:"MAX_CONNECTIONS"   envDefault:"0"`
	ReadBufferSize  int           `env:"READ_BUFFER_SIZE"  envDefault:"4096"`
	WriteBufferSize int           `env:"WRITE_BUFFER_SIZE" envDefault:"4096"`

	// TLSConfig is built from CertFile/KeyFile when both are set.
	TLSConfig *tls.Config `env:"-"`
}

// NewConfig loads a Config using the given env options (typically a
// per-listener prefix).
func NewConfig(opts env.Options) (Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, err
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return Config{}, fmt.Errorf("failed to load TLS key pair: %w", err)
		}
		cfg.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	return cfg, nil
}

// Address returns the host:port listen address.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}
