package wire

// Opcode identifies a WebSocket frame type per RFC 6455 section 5.2.
type Opcode byte

const (
	// OpContinuation continues a fragmented message (0x0).
	OpContinuation Opcode = 0x0
	// OpText carries a UTF-8 text payload (0x1).
	OpText Opcode = 0x1
	// OpBinary carries an opaque binary payload (0x2).
	OpBinary Opcode = 0x2
	// OpClose starts or completes the closing handshake (0x8).
	OpClose Opcode = 0x8
	// OpPing requests a pong from the peer (0x9).
	OpPing Opcode = 0x9
	// OpPong answers a ping (0xA).
	OpPong Opcode = 0xA
)

// IsControl reports whether the opcode is a control frame (close/ping/pong).
func (o Opcode) IsControl() bool {
	return o >= OpClose
}

// IsData reports whether the opcode carries application data.
func (o Opcode) IsData() bool {
	return o == OpContinuation || o == OpText || o == OpBinary
}

// String returns the opcode name.
func (o Opcode) String() string {
	switch o {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return "unknown"
	}
}

// MessageType represents the type of a complete WebSocket message.
type MessageType int

const (
	// MessageText indicates a UTF-8 encoded text message.
	MessageText MessageType = 1
	// MessageBinary indicates a binary message.
	MessageBinary MessageType = 2
)

// String returns the string representation of the message type.
func (t MessageType) String() string {
	switch t {
	case MessageText:
		return "text"
	case MessageBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// CloseCode represents a WebSocket close status code per RFC 6455.
type CloseCode int

const (
	// CloseNormalClosure indicates a normal closure (1000).
	CloseNormalClosure CloseCode = 1000
	// CloseGoingAway indicates the endpoint is going away (1001).
	CloseGoingAway CloseCode = 1001
	// CloseProtocolError indicates a protocol error (1002).
	CloseProtocolError CloseCode = 1002
	// CloseUnsupportedData indicates unsupported data type (1003).
	CloseUnsupportedData CloseCode = 1003
	// CloseNoStatusReceived indicates no status code was received (1005).
	CloseNoStatusReceived CloseCode = 1005
	// CloseAbnormalClosure indicates abnormal closure (1006).
	CloseAbnormalClosure CloseCode = 1006
	// CloseInvalidPayload indicates invalid UTF-8 in a text message (1007).
	CloseInvalidPayload CloseCode = 1007
	// ClosePolicyViolation indicates a policy violation (1008).
	ClosePolicyViolation CloseCode = 1008
	// CloseMessageTooBig indicates the message is too large (1009).
	CloseMessageTooBig CloseCode = 1009
	// CloseMandatoryExtension indicates a missing mandatory extension (1010).
	CloseMandatoryExtension CloseCode = 1010
	// CloseInternalError indicates an internal server error (1011).
	CloseInternalError CloseCode = 1011
	// CloseServiceRestart indicates a service restart (1012).
	CloseServiceRestart CloseCode = 1012
	// CloseTryAgainLater indicates the client should try again later (1013).
	CloseTryAgainLater CloseCode = 1013
	// CloseTLSHandshake indicates a TLS handshake failure (1015).
	CloseTLSHandshake CloseCode = 1015
)

// String returns a human-readable description of the close code.
func (c CloseCode) String() string {
	switch c {
	case CloseNormalClosure:
		return "normal closure"
	case CloseGoingAway:
		return "going away"
	case CloseProtocolError:
		return "protocol error"
	case CloseUnsupportedData:
		return "unsupported data"
	case CloseNoStatusReceived:
		return "no status received"
	case CloseAbnormalClosure:
		return "abnormal closure"
	case CloseInvalidPayload:
		return "invalid payload"
	case ClosePolicyViolation:
		return "policy violation"
	case CloseMessageTooBig:
		return "message too big"
	case CloseMandatoryExtension:
		return "mandatory extension"
	case CloseInternalError:
		return "internal error"
	case CloseServiceRestart:
		return "service restart"
	case CloseTryAgainLater:
		return "try again later"
	case CloseTLSHandshake:
		return "TLS handshake"
	default:
		return "unknown"
	}
}

// validReceivedCloseCode reports whether a close code read off the wire is
// legal. 1005, 1006 and 1015 are reserved for local reporting and must never
// appear in a frame; 3000-4999 are registered/private-use and always pass.
func validReceivedCloseCode(c CloseCode) bool {
	switch {
	case c >= 3000 && c <= 4999:
		return true
	case c >= CloseNormalClosure && c <= CloseUnsupportedData:
		return true
	case c >= CloseInvalidPayload && c <= CloseTryAgainLater:
		return true
	default:
		return false
	}
}
