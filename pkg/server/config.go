package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getmockd/wsd/pkg/handshake"
	"github.com/getmockd/wsd/pkg/wire"
)

// Default values applied by New when the corresponding Config field is zero.
const (
	// DefaultAddr is the listen address used when Config.Addr is empty.
	DefaultAddr = ":8765"
	// DefaultHandshakeTimeout bounds the opening handshake.
	DefaultHandshakeTimeout = 10 * time.Second
	// DefaultShutdownTimeout bounds the graceful drain in Stop.
	DefaultShutdownTimeout = 5 * time.Second
)

// Config configures a Server. The zero value is not usable: a Handler is
// required. Everything else has a working default.
type Config struct {
	// Addr is the TCP listen address (host:port). Empty means DefaultAddr.
	Addr string

	// ServerName is sent back in the handshake response's Server header.
	// Empty omits the header.
	ServerName string

	// Handler serves each open connection. Required.
	Handler Handler

	// Subprotocols must stay empty: negotiation is not implemented, and a
	// non-empty list is rejected at construction rather than silently
	// ignored.
	Subprotocols []string

	// Extensions must stay empty, same deal as Subprotocols.
	Extensions []string

	// MaxConnections caps concurrently accepted transports. Zero means
	// unlimited.
	MaxConnections int

	// MaxHeaderBytes caps the handshake request head. Zero means
	// handshake.DefaultMaxHeaderBytes.
	MaxHeaderBytes int

	// MaxMessageSize caps a single reassembled message. Zero means
	// wire.DefaultMaxMessageSize; negative means unbounded.
	MaxMessageSize int64

	// HandshakeTimeout bounds the opening handshake. Zero means
	// DefaultHandshakeTimeout; negative disables the deadline.
	HandshakeTimeout time.Duration

	// ShutdownTimeout bounds how long Stop waits for in-flight connections.
	// Zero means DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	// Logger receives operational events. Nil means no logging.
	Logger *slog.Logger
}

// Validate reports configuration errors. It is called by New before any
// socket is bound, so misconfiguration surfaces immediately and loudly.
func (c *Config) Validate() error {
	if c.Handler == nil {
		return ErrNoHandler
	}
	if len(c.Subprotocols) > 0 {
		return fmt.Errorf("%w: %v", ErrSubprotocolsUnsupported, c.Subprotocols)
	}
	if len(c.Extensions) > 0 {
		return fmt.Errorf("%w: %v", ErrExtensionsUnsupported, c.Extensions)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("maxConnections must be >= 0, got %d", c.MaxConnections)
	}
	return nil
}

// withDefaults returns a copy of c with zero fields replaced by defaults.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.Addr == "" {
		out.Addr = DefaultAddr
	}
	if out.MaxHeaderBytes == 0 {
		out.MaxHeaderBytes = handshake.DefaultMaxHeaderBytes
	}
	if out.MaxMessageSize == 0 {
		out.MaxMessageSize = wire.DefaultMaxMessageSize
	}
	if out.HandshakeTimeout == 0 {
		out.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &out
}
