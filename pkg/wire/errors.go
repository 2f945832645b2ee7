package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocol indicates the peer violated the framing rules (reserved
	// bits, bad opcode sequence, unmasked client frame, oversized or
	// fragmented control frame, illegal close code).
	ErrProtocol = errors.New("websocket protocol error")

	// ErrMessageTooBig indicates a frame or reassembled message exceeds the
	// configured size limit.
	ErrMessageTooBig = errors.New("websocket message exceeds size limit")

	// ErrInvalidUTF8 indicates a text message or close reason is not valid
	// UTF-8.
	ErrInvalidUTF8 = errors.New("websocket payload is not valid UTF-8")

	// ErrClosed indicates an operation on a connection whose closing
	// handshake has already begun.
	ErrClosed = errors.New("websocket connection closed")
)

// CloseError reports the close frame received from the peer. ReadMessage
// returns it once the peer starts the closing handshake; match it with
// errors.As.
type CloseError struct {
	Code   CloseCode
	Reason string
}

// Error implements the error interface.
func (e *CloseError) Error() string {
	s := fmt.Sprintf("websocket: close %d (%s)", int(e.Code), e.Code)
	if e.Reason != "" {
		s += ": " + e.Reason
	}
	return s
}

// IsCloseError reports whether err carries a peer close frame with one of
// the given codes. With no codes it matches any CloseError.
func IsCloseError(err error, codes ...CloseCode) bool {
	var ce *CloseError
	if !errors.As(err, &ce) {
		return false
	}
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if ce.Code == c {
			return true
		}
	}
	return false
}
