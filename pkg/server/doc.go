// Package server accepts raw TCP connections, upgrades them with the RFC 6455
// opening handshake, and runs an application handler over each open
// connection.
//
// Each accepted transport gets its own goroutine that walks the connection
// through its lifecycle: handshake, handler, closing handshake, transport
// release. Failures on one connection are logged and never disturb the
// accept loop or other connections.
//
// Key features:
//   - Synchronous configuration validation before any socket is bound
//   - Per-connection state machine (connecting, open, closing, closed)
//   - Exactly-once transport close on every exit path
//   - Graceful (Stop) and immediate (Close) shutdown
//   - Optional cap on concurrent connections
//
// Usage:
//
//	srv, err := server.New(&server.Config{
//		Addr: ":8765",
//		Handler: server.HandlerFunc(func(ctx context.Context, conn *server.Conn) error {
//			for {
//				mt, data, err := conn.ReadMessage()
//				if err != nil {
//					// A clean peer close surfaces here as *wire.CloseError
//					// and is not treated as a handler fault.
//					return err
//				}
//				if err := conn.WriteMessage(mt, data); err != nil {
//					return err
//				}
//			}
//		}),
//	})
//	if err != nil {
//		return err
//	}
//	if err := srv.Start(); err != nil {
//		return err
//	}
//	defer srv.Stop()
//
// The handshake itself lives in pkg/handshake and the post-upgrade framing in
// pkg/wire; this package wires the two together around real sockets.
package server
