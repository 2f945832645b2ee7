package server

import (
	"context"

	"github.com/getmockd/wsd/pkg/wire"
)

// EchoHandler returns a handler that reflects every data message back to
// the client with the same message type. A non-empty announce string is
// sent as a text message right after the connection opens.
//
// The handler returns once the client closes the connection or a read or
// write fails, so a clean client close completes the closing handshake
// with code 1000.
func EchoHandler(announce string) Handler {
	return HandlerFunc(func(ctx context.Context, conn *Conn) error {
		if announce != "" {
			if err := conn.WriteMessage(wire.MessageText, []byte(announce)); err != nil {
				return err
			}
		}
		for {
			typ, data, err := conn.ReadMessage()
			if err != nil {
				return err
			}
			if err := conn.WriteMessage(typ, data); err != nil {
				return err
			}
		}
	})
}
