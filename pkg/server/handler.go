package server

import "context"

// Handler runs the application protocol over one open connection. ServeConn
// is called after the opening handshake succeeds and returns when the
// application is done with the connection; the server then runs the closing
// handshake. A nil return closes with code 1000, an error return (other than
// a clean peer close) with code 1011.
//
// ctx is canceled when the server shuts down hard; handlers that block
// outside conn reads should watch it.
type Handler interface {
	ServeConn(ctx context.Context, conn *Conn) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, conn *Conn) error

// ServeConn calls f(ctx, conn).
func (f HandlerFunc) ServeConn(ctx context.Context, conn *Conn) error {
	return f(ctx, conn)
}
