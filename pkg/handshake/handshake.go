package handshake

import (
	"bufio"
	"bytes"
	"crypto/sha1" //nolint:gosec // SHA-1 is mandated by RFC 6455 for the accept token.
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
)

// Protocol constants.
const (
	// GUID is the fixed value appended to the client key before hashing,
	// per RFC 6455 section 1.3.
	GUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

	// SupportedVersion is the only WebSocket protocol version served.
	SupportedVersion = "13"

	// DefaultMaxHeaderBytes caps how much of the transport is read while
	// parsing the upgrade request head.
	DefaultMaxHeaderBytes = 8192
)

// Header names used by the opening handshake.
const (
	headerUpgrade = "Upgrade"
	headerKey     = "Sec-WebSocket-Key"
	headerVersion = "Sec-WebSocket-Version"
)

// AcceptKey computes the Sec-WebSocket-Accept token for a client key:
// base64(SHA-1(key + GUID)). The key is used as received, undecoded;
// the computation is pure and deterministic.
func AcceptKey(key string) string {
	h := sha1.New() //nolint:gosec // see GUID: the token derivation is fixed by the RFC.
	h.Write([]byte(key))
	h.Write([]byte(GUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Validate checks that hdr describes a valid WebSocket upgrade and returns
// the client key. Requirements, in order:
//
//  1. The Upgrade header contains the token "websocket" (case-insensitive,
//     comma-separated list).
//  2. Sec-WebSocket-Key is present and non-empty.
//  3. Sec-WebSocket-Version, when present, equals "13". Mismatches are
//     rejected rather than downgraded; absence is tolerated.
//
// Client offers for subprotocols or extensions are ignored. Failures return
// an error wrapping ErrInvalidHandshake that names the violated requirement.
func Validate(hdr http.Header) (string, error) {
	if !containsToken(hdr, headerUpgrade, "websocket") {
		return "", fmt.Errorf("%w: missing websocket token in Upgrade header", ErrInvalidHandshake)
	}

	key := hdr.Get(headerKey)
	if key == "" {
		return "", fmt.Errorf("%w: missing Sec-WebSocket-Key header", ErrInvalidHandshake)
	}

	if v := hdr.Get(headerVersion); v != "" && v != SupportedVersion {
		return "", fmt.Errorf("%w: unsupported Sec-WebSocket-Version %q", ErrInvalidHandshake, v)
	}

	return key, nil
}

// BuildResponse returns the literal bytes of a 101 Switching Protocols
// response for the given accept token. Header order is fixed so the output
// is byte-stable. An empty serverName omits the Server header.
func BuildResponse(acceptKey, serverName string) []byte {
	var b bytes.Buffer
	b.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	if serverName != "" {
		b.WriteString("Server: " + serverName + "\r\n")
	}
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Sec-WebSocket-Accept: " + acceptKey + "\r\n")
	b.WriteString("\r\n")
	return b.Bytes()
}

// Config controls Perform.
type Config struct {
	// ServerName populates the Server response header. Empty omits it.
	ServerName string

	// MaxHeaderBytes caps the size of the request head read from the
	// transport. Zero means DefaultMaxHeaderBytes.
	MaxHeaderBytes int
}

// Perform runs the server side of the opening handshake on rw: it reads and
// parses exactly one HTTP request, validates it, and writes the complete 101
// response. It returns the request's target URI for application routing and
// a reader that must carry all subsequent reads from the transport — the
// client may send frames before seeing the response, and those bytes are
// buffered there.
//
// Perform never retries and writes nothing on any failure path; the caller
// closes the transport after a failure. Unparsable input surfaces as
// ErrMalformedRequest, a parsed-but-invalid upgrade as ErrInvalidHandshake.
func Perform(rw io.ReadWriter, cfg Config) (uri string, rd io.Reader, err error) {
	limit := cfg.MaxHeaderBytes
	if limit <= 0 {
		limit = DefaultMaxHeaderBytes
	}

	lr := &io.LimitedReader{R: rw, N: int64(limit)}
	br := bufio.NewReader(lr)

	req, err := http.ReadRequest(br)
	if err != nil {
		if lr.N <= 0 {
			return "", nil, fmt.Errorf("%w: request head exceeds %d bytes", ErrMalformedRequest, limit)
		}
		return "", nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	key, err := Validate(req.Header)
	if err != nil {
		return "", nil, err
	}

	resp := BuildResponse(AcceptKey(key), cfg.ServerName)
	if _, err := rw.Write(resp); err != nil {
		return "", nil, fmt.Errorf("write handshake response: %w", err)
	}

	// Handshake done; lift the head-size cap so frame traffic can flow
	// through the same buffered reader.
	lr.N = math.MaxInt64
	return req.RequestURI, br, nil
}

// containsToken reports whether the named header includes token in its
// comma-separated value list, case-insensitively.
func containsToken(hdr http.Header, name, token string) bool {
	for _, v := range hdr.Values(name) {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}
