package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// maxControlPayload is the RFC 6455 cap on control frame payloads.
const maxControlPayload = 125

// Frame is a single WebSocket wire frame.
type Frame struct {
	Final   bool
	Opcode  Opcode
	Masked  bool
	MaskKey [4]byte
	Payload []byte
}

// ReadFrame reads one frame from r. Masked payloads are unmasked in place.
// maxPayload bounds the declared payload length of a single frame; zero
// means unbounded. Frames violating the framing rules (reserved bits,
// fragmented or oversized control frames) fail with ErrProtocol.
func ReadFrame(r io.Reader, maxPayload int64) (*Frame, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	f := &Frame{
		Final:  hdr[0]&0x80 != 0,
		Opcode: Opcode(hdr[0] & 0x0F),
		Masked: hdr[1]&0x80 != 0,
	}

	// Reserved bits signal extension use, which is never negotiated here.
	if hdr[0]&0x70 != 0 {
		return nil, fmt.Errorf("%w: reserved bits set", ErrProtocol)
	}

	length := int64(hdr[1] & 0x7F)
	switch length {
	case 126:
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, fmt.Errorf("read extended length: %w", err)
		}
		length = int64(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, fmt.Errorf("read extended length: %w", err)
		}
		n := binary.BigEndian.Uint64(ext[:])
		if n > math.MaxInt64 {
			return nil, fmt.Errorf("%w: payload length high bit set", ErrProtocol)
		}
		length = int64(n)
	}

	if f.Opcode.IsControl() {
		if !f.Final {
			return nil, fmt.Errorf("%w: fragmented control frame", ErrProtocol)
		}
		if length > maxControlPayload {
			return nil, fmt.Errorf("%w: control frame payload %d exceeds %d bytes", ErrProtocol, length, maxControlPayload)
		}
	}
	if maxPayload > 0 && length > maxPayload {
		return nil, fmt.Errorf("%w: frame payload %d exceeds limit %d", ErrMessageTooBig, length, maxPayload)
	}

	if f.Masked {
		if _, err := io.ReadFull(r, f.MaskKey[:]); err != nil {
			return nil, fmt.Errorf("read mask key: %w", err)
		}
	}

	f.Payload = make([]byte, length)
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if f.Masked {
		maskBytes(f.MaskKey, f.Payload)
	}

	return f, nil
}

// WriteFrame serializes f to w as a single write. When f.Masked is set the
// payload is masked with f.MaskKey on the wire; f.Payload itself is left
// untouched.
func WriteFrame(w io.Writer, f *Frame) error {
	b0 := byte(f.Opcode) & 0x0F
	if f.Final {
		b0 |= 0x80
	}

	plen := len(f.Payload)
	var hdr []byte
	switch {
	case plen <= 125:
		hdr = []byte{b0, byte(plen)}
	case plen <= 0xFFFF:
		hdr = make([]byte, 4)
		hdr[0], hdr[1] = b0, 126
		binary.BigEndian.PutUint16(hdr[2:], uint16(plen))
	default:
		hdr = make([]byte, 10)
		hdr[0], hdr[1] = b0, 127
		binary.BigEndian.PutUint64(hdr[2:], uint64(plen))
	}
	if f.Masked {
		hdr[1] |= 0x80
	}

	buf := make([]byte, 0, len(hdr)+4+plen)
	buf = append(buf, hdr...)
	if f.Masked {
		buf = append(buf, f.MaskKey[:]...)
		start := len(buf)
		buf = append(buf, f.Payload...)
		maskBytes(f.MaskKey, buf[start:])
	} else {
		buf = append(buf, f.Payload...)
	}

	_, err := w.Write(buf)
	return err
}

// maskBytes XORs b with the repeating 4-byte mask key, in place.
func maskBytes(key [4]byte, b []byte) {
	for i := range b {
		b[i] ^= key[i%4]
	}
}

// EncodeClosePayload builds a close frame payload: a big-endian status code
// followed by a UTF-8 reason. The reason is truncated so the payload fits a
// control frame. A zero code yields an empty payload (no status).
func EncodeClosePayload(code CloseCode, reason string) []byte {
	if code == 0 {
		return nil
	}
	if len(reason) > maxControlPayload-2 {
		reason = reason[:maxControlPayload-2]
	}
	p := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(p, uint16(code))
	copy(p[2:], reason)
	return p
}

// ParseClosePayload interprets a close frame payload. An empty payload maps
// to CloseNoStatusReceived. One-byte payloads, reserved status codes, and
// non-UTF-8 reasons are protocol violations.
func ParseClosePayload(p []byte) (*CloseError, error) {
	switch {
	case len(p) == 0:
		return &CloseError{Code: CloseNoStatusReceived}, nil
	case len(p) == 1:
		return nil, fmt.Errorf("%w: close payload of one byte", ErrProtocol)
	}

	code := CloseCode(binary.BigEndian.Uint16(p))
	if !validReceivedCloseCode(code) {
		return nil, fmt.Errorf("%w: illegal close code %d", ErrProtocol, code)
	}
	reason := p[2:]
	if !utf8.Valid(reason) {
		return nil, fmt.Errorf("%w: close reason", ErrInvalidUTF8)
	}
	return &CloseError{Code: code, Reason: string(reason)}, nil
}
