// Package wire implements the WebSocket data plane of RFC 6455: frame
// encoding and decoding, message fragmentation and reassembly, control-frame
// handling, and the closing handshake.
//
// The central type is Protocol, which a connection owns once the opening
// handshake has completed:
//
//	proto := wire.NewProtocol(conn, wire.WithReader(rd))
//	for {
//	    mt, data, err := proto.ReadMessage()
//	    if err != nil {
//	        break
//	    }
//	    _ = proto.WriteMessage(mt, data)
//	}
//	_ = proto.Close(wire.CloseNormalClosure, "")
//
// Protocol operates in server mode: inbound frames must be masked, outbound
// frames never are. Pings are answered automatically during reads, pongs are
// absorbed, and a close frame from the peer ends ReadMessage with a
// *CloseError after the frame has been echoed. Close sends at most one close
// frame per connection no matter how often it is called.
//
// ReadFrame and WriteFrame expose the raw frame layer for tests and tools
// that need to speak the wire format directly.
package wire
