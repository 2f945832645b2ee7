// Package logging provides structured logging configuration for wsd.
//
// It wraps log/slog so every component logs the same way: leveled records
// with key-value attributes, in text or JSON.
//
// # Usage
//
// Create a logger and hand it to the components that need one:
//
//	log := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("debug"),
//	    Format: logging.FormatText,
//	})
//
//	log.Info("server listening", "addr", addr)
//	log.Warn("handshake failed", "remote", remote, "error", err)
//
// Loggers are always injected; there is no package-level default. Components
// that receive a nil logger fall back to Nop().
package logging
