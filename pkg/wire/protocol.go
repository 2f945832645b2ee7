package wire

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
	"unicode/utf8"
)

// DefaultMaxMessageSize bounds the size of a reassembled message (1 MiB).
const DefaultMaxMessageSize = 1 << 20

// closeDrainTimeout bounds how long Close waits for the peer's close frame.
const closeDrainTimeout = 5 * time.Second

// Protocol owns all post-handshake traffic on one connection: message
// assembly, control frames, and the closing handshake. It runs in server
// mode — inbound frames must be masked, outbound frames never are.
//
// One goroutine may read (ReadMessage) while others write; writes are
// serialized internally. Protocol never closes the underlying transport;
// that stays with its owner.
type Protocol struct {
	conn net.Conn
	r    io.Reader

	maxMessageSize int64

	writeMu   sync.Mutex
	closeSent bool

	// closeReceived is touched only by the read path and by Close, which
	// callers invoke after reads have stopped.
	closeReceived bool
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithReader makes reads come from r instead of the connection. Used to
// carry over bytes the opening handshake buffered.
func WithReader(r io.Reader) Option {
	return func(p *Protocol) { p.r = r }
}

// WithMaxMessageSize overrides DefaultMaxMessageSize. Zero or negative
// leaves messages unbounded.
func WithMaxMessageSize(n int64) Option {
	return func(p *Protocol) { p.maxMessageSize = n }
}

// NewProtocol wraps an upgraded connection.
func NewProtocol(conn net.Conn, opts ...Option) *Protocol {
	p := &Protocol{
		conn:           conn,
		r:              conn,
		maxMessageSize: DefaultMaxMessageSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ReadMessage blocks until a complete data message arrives and returns it.
// Pings are answered, pongs absorbed. When the peer starts the closing
// handshake the close frame is echoed and a *CloseError returned. Framing
// violations surface as ErrProtocol, ErrMessageTooBig or ErrInvalidUTF8;
// the caller decides the close code.
func (p *Protocol) ReadMessage() (MessageType, []byte, error) {
	var (
		msg        []byte
		mt         MessageType
		assembling bool
	)

	for {
		f, err := ReadFrame(p.r, p.maxMessageSize)
		if err != nil {
			return 0, nil, err
		}
		if !f.Masked {
			return 0, nil, fmt.Errorf("%w: unmasked client frame", ErrProtocol)
		}

		switch f.Opcode {
		case OpPing:
			if err := p.writeControl(OpPong, f.Payload); err != nil {
				return 0, nil, fmt.Errorf("answer ping: %w", err)
			}

		case OpPong:
			// Unsolicited pongs are allowed and ignored.

		case OpClose:
			ce, err := ParseClosePayload(f.Payload)
			if err != nil {
				return 0, nil, err
			}
			p.closeReceived = true
			// Complete the closing handshake from this side. The peer may
			// already be gone, so the write error is irrelevant.
			_ = p.SendClose(ce.Code, "")
			return 0, nil, ce

		case OpText, OpBinary:
			if assembling {
				return 0, nil, fmt.Errorf("%w: new data frame during fragmented message", ErrProtocol)
			}
			if f.Opcode == OpText {
				mt = MessageText
			} else {
				mt = MessageBinary
			}
			msg = f.Payload
			if f.Final {
				return p.finishMessage(mt, msg)
			}
			assembling = true

		case OpContinuation:
			if !assembling {
				return 0, nil, fmt.Errorf("%w: continuation frame without a message", ErrProtocol)
			}
			if p.maxMessageSize > 0 && int64(len(msg))+int64(len(f.Payload)) > p.maxMessageSize {
				return 0, nil, fmt.Errorf("%w: fragmented message exceeds %d bytes", ErrMessageTooBig, p.maxMessageSize)
			}
			msg = append(msg, f.Payload...)
			if f.Final {
				return p.finishMessage(mt, msg)
			}

		default:
			return 0, nil, fmt.Errorf("%w: unknown opcode %#x", ErrProtocol, byte(f.Opcode))
		}
	}
}

// finishMessage applies end-of-message validation.
func (p *Protocol) finishMessage(mt MessageType, msg []byte) (MessageType, []byte, error) {
	if mt == MessageText && !utf8.Valid(msg) {
		return 0, nil, fmt.Errorf("%w: text message", ErrInvalidUTF8)
	}
	return mt, msg, nil
}

// WriteMessage sends one unfragmented data message.
func (p *Protocol) WriteMessage(mt MessageType, data []byte) error {
	var op Opcode
	switch mt {
	case MessageText:
		op = OpText
	case MessageBinary:
		op = OpBinary
	default:
		return fmt.Errorf("unsupported message type %d", mt)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.closeSent {
		return ErrClosed
	}
	return WriteFrame(p.conn, &Frame{Final: true, Opcode: op, Payload: data})
}

// Ping sends a ping frame. The payload must fit a control frame.
func (p *Protocol) Ping(payload []byte) error {
	if len(payload) > maxControlPayload {
		return fmt.Errorf("ping payload exceeds %d bytes", maxControlPayload)
	}
	return p.writeControl(OpPing, payload)
}

// writeControl sends a single control frame unless the closing handshake
// has begun.
func (p *Protocol) writeControl(op Opcode, payload []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.closeSent {
		return ErrClosed
	}
	return WriteFrame(p.conn, &Frame{Final: true, Opcode: op, Payload: payload})
}

// SendClose writes the close frame once; later calls are no-ops, so exactly
// one close frame leaves this side of the connection. Unlike Close it does
// not wait for the peer's reply, which keeps it safe to call while another
// goroutine sits in ReadMessage — that goroutine will surface the peer's
// answering close frame as a *CloseError.
func (p *Protocol) SendClose(code CloseCode, reason string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.closeSent {
		return nil
	}
	p.closeSent = true

	var payload []byte
	if code != 0 && code != CloseNoStatusReceived {
		payload = EncodeClosePayload(code, reason)
	}
	return WriteFrame(p.conn, &Frame{Final: true, Opcode: OpClose, Payload: payload})
}

// Close runs the closing handshake: it sends a close frame (at most once
// per connection) and, unless the peer's close frame has already been seen,
// drains the connection until it arrives or closeDrainTimeout passes.
// Close does not close the transport.
func (p *Protocol) Close(code CloseCode, reason string) error {
	sendErr := p.SendClose(code, reason)

	if p.closeReceived {
		return sendErr
	}

	if p.conn != nil {
		_ = p.conn.SetReadDeadline(time.Now().Add(closeDrainTimeout))
	}
	for {
		f, err := ReadFrame(p.r, p.maxMessageSize)
		if err != nil {
			// The peer dropping without a close frame is routine.
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return sendErr
			}
			if sendErr != nil {
				return sendErr
			}
			return err
		}
		if f.Opcode == OpClose {
			p.closeReceived = true
			return sendErr
		}
		// In-flight data is discarded while waiting for the close frame.
	}
}
