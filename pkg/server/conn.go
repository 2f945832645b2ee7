package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/getmockd/wsd/internal/id"
	"github.com/getmockd/wsd/pkg/handshake"
	"github.com/getmockd/wsd/pkg/wire"
)

// Conn is one accepted connection walking the lifecycle state machine.
// Handlers receive it once the opening handshake has completed and use
// ReadMessage/WriteMessage for traffic; everything before and after the
// handler is driven by the connection's own goroutine.
type Conn struct {
	id   string
	raw  net.Conn
	uri  string
	log  *slog.Logger
	conn *wire.Protocol

	state  atomic.Int32
	opened chan struct{}
	closed atomic.Bool

	connectedAt  time.Time
	messagesSent atomic.Int64
	messagesRecv atomic.Int64
}

func newConn(raw net.Conn, log *slog.Logger) *Conn {
	c := &Conn{
		id:          id.Connection(),
		raw:         raw,
		opened:      make(chan struct{}),
		connectedAt: time.Now(),
	}
	c.log = log.With("conn", c.id, "remote", raw.RemoteAddr().String())
	return c
}

// ID returns the unique connection ID.
func (c *Conn) ID() string {
	return c.id
}

// Path returns the request target from the handshake, including any query
// string. Valid once Opened has fired.
func (c *Conn) Path() string {
	return c.uri
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Opened returns a channel that is closed the moment the connection reaches
// StateOpen. It never fires for connections whose handshake fails.
func (c *Conn) Opened() <-chan struct{} {
	return c.opened
}

// RemoteAddr returns the peer's network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// ConnectedAt returns when the transport was accepted.
func (c *Conn) ConnectedAt() time.Time {
	return c.connectedAt
}

// MessagesSent returns the number of data messages written so far.
func (c *Conn) MessagesSent() int64 {
	return c.messagesSent.Load()
}

// MessagesReceived returns the number of data messages read so far.
func (c *Conn) MessagesReceived() int64 {
	return c.messagesRecv.Load()
}

// ReadMessage returns the next complete data message from the peer.
func (c *Conn) ReadMessage() (wire.MessageType, []byte, error) {
	select {
	case <-c.opened:
	default:
		return 0, nil, ErrNotOpen
	}
	mt, data, err := c.conn.ReadMessage()
	if err != nil {
		return 0, nil, err
	}
	c.messagesRecv.Add(1)
	return mt, data, nil
}

// WriteMessage sends one data message to the peer.
func (c *Conn) WriteMessage(mt wire.MessageType, data []byte) error {
	select {
	case <-c.opened:
	default:
		return ErrNotOpen
	}
	if err := c.conn.WriteMessage(mt, data); err != nil {
		return err
	}
	c.messagesSent.Add(1)
	return nil
}

// Ping sends a ping frame to the peer.
func (c *Conn) Ping(payload []byte) error {
	select {
	case <-c.opened:
	default:
		return ErrNotOpen
	}
	return c.conn.Ping(payload)
}

// Close starts the closing handshake without waiting for the peer's reply;
// a concurrent ReadMessage surfaces that reply as *wire.CloseError. Called
// before the handshake completes it simply drops the transport.
func (c *Conn) Close(code wire.CloseCode, reason string) error {
	select {
	case <-c.opened:
		c.transition(StateClosing)
		return c.conn.SendClose(code, reason)
	default:
		c.closeTransport()
		return nil
	}
}

// run drives the connection from accept to transport release. It never
// returns an error: every failure is logged and absorbed here so the accept
// loop and sibling connections stay untouched.
func (c *Conn) run(ctx context.Context, cfg *Config) {
	defer c.closeTransport()

	if cfg.HandshakeTimeout > 0 {
		_ = c.raw.SetDeadline(time.Now().Add(cfg.HandshakeTimeout))
	}
	uri, rd, err := handshake.Perform(c.raw, handshake.Config{
		ServerName:     cfg.ServerName,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	})
	if err != nil {
		c.log.Warn("handshake failed", "error", err)
		return
	}
	_ = c.raw.SetDeadline(time.Time{})

	maxMsg := cfg.MaxMessageSize
	if maxMsg < 0 {
		maxMsg = 0
	}
	c.uri = uri
	c.conn = wire.NewProtocol(c.raw, wire.WithReader(rd), wire.WithMaxMessageSize(maxMsg))
	c.transition(StateOpen)
	close(c.opened)
	c.log.Debug("connection open", "path", uri)

	handlerErr := c.invokeHandler(ctx, cfg.Handler)
	if handlerErr != nil && !wire.IsCloseError(handlerErr) {
		c.log.Warn("handler fault", "error", handlerErr)
	}

	c.transition(StateClosing)
	code, reason := closeCodeFor(handlerErr)
	if err := c.conn.Close(code, reason); err != nil {
		c.log.Warn("closing handshake failed", "error", err)
	}

	c.transition(StateClosed)
	c.log.Debug("connection closed",
		"sent", c.messagesSent.Load(),
		"received", c.messagesRecv.Load())
}

// invokeHandler runs the application handler, converting a panic into a
// handler fault instead of letting it take the process down.
func (c *Conn) invokeHandler(ctx context.Context, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.ServeConn(ctx, c)
}

// closeTransport releases the underlying transport exactly once and pins the
// state at closed. Safe from any goroutine.
func (c *Conn) closeTransport() {
	c.transition(StateClosed)
	if c.closed.Swap(true) {
		return
	}
	_ = c.raw.Close()
}

// transition moves the lifecycle state forward; attempts to move backwards
// are ignored, which keeps concurrent closers from resurrecting a closed
// connection.
func (c *Conn) transition(to State) {
	for {
		cur := c.state.Load()
		if cur >= int32(to) {
			return
		}
		if c.state.CompareAndSwap(cur, int32(to)) {
			return
		}
	}
}

// closeCodeFor picks the close code announced to the peer after the handler
// returns. A clean peer close needs no new announcement (the wire protocol
// already echoed it), so its code is never put on the wire.
func closeCodeFor(err error) (wire.CloseCode, string) {
	switch {
	case err == nil:
		return wire.CloseNormalClosure, ""
	case wire.IsCloseError(err):
		return wire.CloseNormalClosure, ""
	case errors.Is(err, wire.ErrProtocol):
		return wire.CloseProtocolError, "protocol error"
	case errors.Is(err, wire.ErrInvalidUTF8):
		return wire.CloseInvalidPayload, "invalid utf-8"
	case errors.Is(err, wire.ErrMessageTooBig):
		return wire.CloseMessageTooBig, "message too large"
	default:
		return wire.CloseInternalError, ""
	}
}
