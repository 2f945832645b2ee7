// Package handshake implements the server side of the WebSocket opening
// handshake (RFC 6455 section 4.2).
//
// The package is layered so each step is usable on its own:
//
//   - AcceptKey computes the Sec-WebSocket-Accept token for a client key.
//   - Validate checks an upgrade request's headers and extracts the key.
//   - BuildResponse assembles the literal 101 Switching Protocols bytes.
//   - Perform runs the whole exchange against a transport: read one HTTP
//     request, validate it, write the response, return the target URI.
//
// # Usage
//
//	uri, rd, err := handshake.Perform(conn, handshake.Config{ServerName: "wsd"})
//	if err != nil {
//	    conn.Close()
//	    return
//	}
//	// rd holds any bytes the client sent ahead of the response; all
//	// subsequent reads must go through it.
//
// Perform writes nothing on failure, so a rejected client never receives a
// partial response. Subprotocol and extension negotiation are not
// implemented; client offers are ignored and never echoed.
package handshake
