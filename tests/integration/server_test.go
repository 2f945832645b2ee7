package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/wsd/pkg/server"
)

// ============================================================================
// Test Helpers
// ============================================================================

// startServer boots an echo server on a random loopback port and returns it
// together with its ws:// base URL.
func startServer(t *testing.T, mutate func(*server.Config)) (*server.Server, string) {
	t.Helper()

	cfg := &server.Config{
		Addr:    "127.0.0.1:0",
		Handler: server.EchoHandler(""),
	}
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := server.New(cfg)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		_ = srv.Close()
	})

	return srv, "ws://" + srv.Addr().String()
}

func connectWS(t *testing.T, url string) *ws.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, resp, err := ws.Dial(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close(ws.StatusNormalClosure, "test cleanup")
	})

	return conn
}

func sendText(t *testing.T, conn *ws.Conn, msg string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := conn.Write(ctx, ws.MessageText, []byte(msg))
	require.NoError(t, err)
}

func readText(t *testing.T, conn *ws.Conn) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgType, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, ws.MessageText, msgType)
	return string(data)
}

// ============================================================================
// Echo Round Trips
// ============================================================================

func TestEcho_TextRoundTrip(t *testing.T) {
	_, url := startServer(t, nil)
	conn := connectWS(t, url+"/echo")

	sendText(t, conn, "hello")
	assert.Equal(t, "hello", readText(t, conn))
}

func TestEcho_BinaryRoundTrip(t *testing.T) {
	_, url := startServer(t, nil)
	conn := connectWS(t, url+"/echo")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	binaryData := []byte{0x00, 0x01, 0x02, 0x03, 0xFF}
	require.NoError(t, conn.Write(ctx, ws.MessageBinary, binaryData))

	msgType, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, ws.MessageBinary, msgType)
	assert.Equal(t, binaryData, data)
}

func TestEcho_PreservesMessageOrder(t *testing.T) {
	_, url := startServer(t, nil)
	conn := connectWS(t, url+"/echo")

	for i := 0; i < 20; i++ {
		sendText(t, conn, fmt.Sprintf("msg-%d", i))
	}
	for i := 0; i < 20; i++ {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), readText(t, conn))
	}
}

func TestEcho_LargeMessage(t *testing.T) {
	_, url := startServer(t, nil)
	conn := connectWS(t, url+"/echo")
	conn.SetReadLimit(1 << 20)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Larger than 64 KiB so both sides use the 8-byte extended length.
	payload := make([]byte, 300_000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	require.NoError(t, conn.Write(ctx, ws.MessageBinary, payload))

	msgType, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, ws.MessageBinary, msgType)
	assert.Equal(t, payload, data)
}

// ============================================================================
// Handshake Surface
// ============================================================================

func TestHandshake_DefaultServerHeader(t *testing.T) {
	_, url := startServer(t, nil)

	dialer := gorilla.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(url+"/", nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "wsd", resp.Header.Get("Server"))
}

func TestHandshake_CustomServerName(t *testing.T) {
	_, url := startServer(t, func(cfg *server.Config) {
		cfg.ServerName = "edge-ws"
	})

	dialer := gorilla.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(url+"/", nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "edge-ws", resp.Header.Get("Server"))
}

func TestHandshake_SubprotocolOfferIgnored(t *testing.T) {
	_, url := startServer(t, nil)

	// The server does not negotiate subprotocols: an offer succeeds but
	// nothing is selected.
	dialer := gorilla.Dialer{
		HandshakeTimeout: 5 * time.Second,
		Subprotocols:     []string{"chat.v2"},
	}
	conn, resp, err := dialer.Dial(url+"/", nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Empty(t, resp.Header.Get("Sec-Websocket-Protocol"))

	// The connection still works as a plain WebSocket.
	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte("still works")))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "still works", string(data))
}

func TestHandshake_PlainHTTPRequestRejected(t *testing.T) {
	srv, _ := startServer(t, nil)

	// A plain GET carries no Upgrade header, so the server drops the
	// connection without writing a response.
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + srv.Addr().String() + "/echo")
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)
}

// ============================================================================
// Gorilla Client Interop
// ============================================================================

func TestGorillaClient_Echo(t *testing.T) {
	_, url := startServer(t, nil)

	dialer := gorilla.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(url+"/gorilla", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte("via gorilla")))
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, gorilla.TextMessage, msgType)
	assert.Equal(t, "via gorilla", string(data))
}

// ============================================================================
// Control Frames and Limits
// ============================================================================

func TestPing_AnsweredWithPong(t *testing.T) {
	_, url := startServer(t, nil)
	conn := connectWS(t, url+"/ping")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Ping blocks until the pong arrives; a concurrent Read pumps frames.
	go func() {
		_, _, _ = conn.Read(ctx)
	}()

	require.NoError(t, conn.Ping(ctx))
}

func TestMessageTooBig_Closes1009(t *testing.T) {
	_, url := startServer(t, func(cfg *server.Config) {
		cfg.MaxMessageSize = 1024
	})
	conn := connectWS(t, url+"/small")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, conn.Write(ctx, ws.MessageBinary, make([]byte, 4096)))

	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, ws.StatusMessageTooBig, ws.CloseStatus(err))
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestClientClose_HandshakeCompletes(t *testing.T) {
	_, url := startServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, resp, err := ws.Dial(ctx, url+"/bye", nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err)

	sendText(t, conn, "last words")
	assert.Equal(t, "last words", readText(t, conn))

	// Close performs the full closing handshake and fails if the server
	// answers with anything but an echoed close frame.
	require.NoError(t, conn.Close(ws.StatusNormalClosure, "done"))
}

func TestAnnounce_GreetsBeforeEcho(t *testing.T) {
	_, url := startServer(t, func(cfg *server.Config) {
		cfg.Handler = server.EchoHandler("welcome aboard")
	})
	conn := connectWS(t, url+"/greeted")

	assert.Equal(t, "welcome aboard", readText(t, conn))

	sendText(t, conn, "thanks")
	assert.Equal(t, "thanks", readText(t, conn))
}

func TestStop_AnnouncesGoingAway(t *testing.T) {
	srv, url := startServer(t, nil)
	conn := connectWS(t, url+"/drain")

	sendText(t, conn, "warm-up")
	assert.Equal(t, "warm-up", readText(t, conn))

	stopDone := make(chan error, 1)
	go func() {
		stopDone <- srv.Stop()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, ws.StatusGoingAway, ws.CloseStatus(err))

	require.NoError(t, <-stopDone)
	assert.False(t, srv.Running())
}

func TestConnectionCount_TracksClients(t *testing.T) {
	srv, url := startServer(t, nil)
	assert.Equal(t, 0, srv.ConnectionCount())

	conns := make([]*ws.Conn, 3)
	for i := range conns {
		conns[i] = connectWS(t, fmt.Sprintf("%s/client-%d", url, i))
	}

	require.Eventually(t, func() bool {
		return srv.ConnectionCount() == 3
	}, 2*time.Second, 10*time.Millisecond)

	conns[0].Close(ws.StatusNormalClosure, "leaving")
	conns[1].Close(ws.StatusNormalClosure, "leaving")

	require.Eventually(t, func() bool {
		return srv.ConnectionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

// ============================================================================
// Concurrency
// ============================================================================

func TestConcurrentClients_IndependentEchoes(t *testing.T) {
	_, url := startServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		id := i
		g.Go(func() error {
			conn, resp, err := ws.Dial(ctx, fmt.Sprintf("%s/worker-%d", url, id), nil)
			if resp != nil && resp.Body != nil {
				resp.Body.Close()
			}
			if err != nil {
				return fmt.Errorf("worker %d dial: %w", id, err)
			}
			defer conn.Close(ws.StatusNormalClosure, "done")

			for j := 0; j < 25; j++ {
				want := fmt.Sprintf("worker-%d-msg-%d", id, j)
				if err := conn.Write(ctx, ws.MessageText, []byte(want)); err != nil {
					return fmt.Errorf("worker %d write: %w", id, err)
				}
				_, data, err := conn.Read(ctx)
				if err != nil {
					return fmt.Errorf("worker %d read: %w", id, err)
				}
				if string(data) != want {
					return fmt.Errorf("worker %d: got %q, want %q", id, data, want)
				}
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
}
