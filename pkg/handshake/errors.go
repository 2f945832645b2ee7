package handshake

import "errors"

var (
	// ErrMalformedRequest indicates the bytes read from the transport could
	// not be parsed as an HTTP request. The wrapped error carries the parse
	// failure.
	ErrMalformedRequest = errors.New("malformed handshake request")

	// ErrInvalidHandshake indicates a parsed request is not a valid WebSocket
	// upgrade. The wrapped error names the violated requirement.
	ErrInvalidHandshake = errors.New("invalid handshake")
)
