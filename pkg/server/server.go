package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/net/netutil"

	"github.com/getmockd/wsd/pkg/logging"
	"github.com/getmockd/wsd/pkg/wire"
)

// Server owns a TCP listener and the set of connections accepted from it.
type Server struct {
	cfg   *Config
	log   *slog.Logger
	conns *registry

	mu      sync.RWMutex
	running bool
	stopped bool
	ln      net.Listener

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New validates cfg and builds a Server. No socket is touched here: a bad
// configuration (missing handler, requested subprotocols or extensions)
// fails before anything binds.
func New(cfg *Config) (*Server, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		log:     logging.Component(cfg.Logger, "server"),
		conns:   newRegistry(),
		baseCtx: ctx,
		cancel:  cancel,
	}, nil
}

// Start binds the listener and begins accepting connections. Bind failures
// are returned to the caller; everything after that is asynchronous.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrServerClosed
	}
	if s.running {
		return ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.Addr, err)
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	s.ln = ln
	s.running = true
	s.wg.Add(1)
	go s.acceptLoop(ln)

	s.log.Info("listener started", "addr", ln.Addr().String())
	return nil
}

// acceptLoop hands each accepted transport to its own connection goroutine.
// A failing connection never takes the loop down; a failing accept backs
// off and retries until the listener is closed.
func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	var delay time.Duration
	for {
		raw, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay *= 2
			}
			if delay > time.Second {
				delay = time.Second
			}
			s.log.Error("accept failed", "error", err, "retryIn", delay)
			select {
			case <-time.After(delay):
				continue
			case <-s.baseCtx.Done():
				return
			}
		}
		delay = 0

		c := newConn(raw, s.log)
		s.conns.add(c)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.conns.remove(c.id)
			c.run(s.baseCtx, s.cfg)
		}()
	}
}

// Stop shuts the server down gracefully: the listener closes, every open
// connection is asked to close, and in-flight handlers get ShutdownTimeout
// to finish before their transports are forced shut. Idempotent.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	wasRunning := s.running
	s.running = false
	ln := s.ln
	s.mu.Unlock()

	if !wasRunning {
		s.cancel()
		return nil
	}

	err := ln.Close()

	for _, c := range s.conns.snapshot() {
		_ = c.Close(wire.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownTimeout):
		s.log.Warn("graceful drain timed out, forcing connections closed",
			"remaining", s.conns.count())
		s.cancel()
		for _, c := range s.conns.snapshot() {
			c.closeTransport()
		}
		<-done
	}

	s.cancel()
	s.log.Info("server stopped")
	return err
}

// Close shuts the server down immediately: no drain, every transport is
// dropped on the floor. Idempotent.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	wasRunning := s.running
	s.running = false
	ln := s.ln
	s.mu.Unlock()

	s.cancel()
	var err error
	if wasRunning {
		err = ln.Close()
	}
	for _, c := range s.conns.snapshot() {
		c.closeTransport()
	}
	s.wg.Wait()

	s.log.Info("server closed")
	return err
}

// Addr returns the bound listener address, or nil before Start. Useful with
// ":0" listen addresses.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Running reports whether the server is accepting connections.
func (s *Server) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ConnectionCount returns the number of live connections.
func (s *Server) ConnectionCount() int {
	return s.conns.count()
}
