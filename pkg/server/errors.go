package server

import "errors"

// Common errors for the server package.
var (
	// ErrNoHandler indicates the configuration has no connection handler.
	ErrNoHandler = errors.New("no connection handler configured")
	// ErrSubprotocolsUnsupported indicates subprotocols were configured but
	// subprotocol negotiation is not implemented.
	ErrSubprotocolsUnsupported = errors.New("subprotocol negotiation not supported")
	// ErrExtensionsUnsupported indicates extensions were configured but
	// extension negotiation is not implemented.
	ErrExtensionsUnsupported = errors.New("extension negotiation not supported")
	// ErrAlreadyRunning indicates Start was called on a running server.
	ErrAlreadyRunning = errors.New("server already running")
	// ErrNotOpen indicates an I/O call on a connection that has not
	// completed its opening handshake.
	ErrNotOpen = errors.New("connection not open")
	// ErrServerClosed indicates the server has been shut down.
	ErrServerClosed = errors.New("server closed")
)
