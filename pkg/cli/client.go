package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// clientFlags holds the flag values shared by the client subcommands.
type clientFlags struct {
	headers     []string
	subprotocol string
	timeout     time.Duration
	count       int
}

var clientFlagVals clientFlags

// clientCmd groups the WebSocket client subcommands.
var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Interact with WebSocket endpoints for testing",
	Long: `Connect to, send to, and listen on WebSocket endpoints.

These commands speak standard RFC 6455, so they work against any WebSocket
server, not just wsd.`,
}

var clientConnectCmd = &cobra.Command{
	Use:   "connect <url>",
	Short: "Interactive WebSocket client (REPL mode)",
	Long: `Start an interactive WebSocket client session (REPL mode).
Type messages and press Enter to send. Ctrl+C to exit.`,
	Example: `  # Connect to a WebSocket endpoint
  wsd client connect ws://localhost:8765/chat

  # Connect with custom headers
  wsd client connect -H "Authorization:Bearer token" ws://localhost:8765/chat`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClientConnect(args[0], &clientFlagVals)
	},
}

var clientSendCmd = &cobra.Command{
	Use:   "send <url> <message>",
	Short: "Send a single message and exit",
	Long: `Send a single text message to a WebSocket endpoint and exit.
A message starting with @ is read from the named file.`,
	Example: `  # Send a simple message
  wsd client send ws://localhost:8765/ "hello"

  # Send message from file
  wsd client send ws://localhost:8765/ @message.json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClientSend(args[0], args[1], &clientFlagVals)
	},
}

var clientListenCmd = &cobra.Command{
	Use:   "listen <url>",
	Short: "Stream incoming messages",
	Long:  `Listen for incoming WebSocket messages and print them.`,
	Example: `  # Listen to all messages
  wsd client listen ws://localhost:8765/feed

  # Listen for 10 messages then exit
  wsd client listen -n 10 ws://localhost:8765/feed`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClientListen(args[0], &clientFlagVals)
	},
}

func init() {
	rootCmd.AddCommand(clientCmd)
	clientCmd.AddCommand(clientConnectCmd)
	clientCmd.AddCommand(clientSendCmd)
	clientCmd.AddCommand(clientListenCmd)

	f := &clientFlagVals
	clientCmd.PersistentFlags().StringArrayVarP(&f.headers, "header", "H", nil, "Custom headers (key:value), repeatable")
	clientCmd.PersistentFlags().StringVar(&f.subprotocol, "subprotocol", "", "WebSocket subprotocol to offer")
	clientCmd.PersistentFlags().DurationVarP(&f.timeout, "timeout", "t", 30*time.Second, "Connection timeout")
	clientListenCmd.Flags().IntVarP(&f.count, "count", "n", 0, "Number of messages to receive (0 = unlimited)")
}

// dialEndpoint opens a WebSocket connection with the shared client flags
// applied.
func dialEndpoint(url string, f *clientFlags) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: f.timeout,
	}
	if f.subprotocol != "" {
		dialer.Subprotocols = []string{f.subprotocol}
	}

	requestHeader := http.Header{}
	for _, h := range f.headers {
		if key, value, ok := strings.Cut(h, ":"); ok {
			requestHeader.Add(strings.TrimSpace(key), strings.TrimSpace(value))
		}
	}

	conn, resp, err := dialer.Dial(url, requestHeader)
	if err != nil {
		if resp != nil {
			return nil, nil, fmt.Errorf("connection failed: %v (HTTP %d)", err, resp.StatusCode)
		}
		return nil, nil, fmt.Errorf("connection failed: %v", err)
	}
	return conn, resp, nil
}

// wsMessage represents a received WebSocket message.
type wsMessage struct {
	Type int
	Data []byte
}

// messageTypeString returns a human-readable message type.
func messageTypeString(t int) string {
	switch t {
	case websocket.TextMessage:
		return "text"
	case websocket.BinaryMessage:
		return "binary"
	case websocket.CloseMessage:
		return "close"
	case websocket.PingMessage:
		return "ping"
	case websocket.PongMessage:
		return "pong"
	default:
		return "unknown"
	}
}

// runClientConnect starts an interactive WebSocket REPL session.
func runClientConnect(url string, f *clientFlags) error {
	fmt.Printf("Connecting to %s...\n", url)
	conn, resp, err := dialEndpoint(url, f)
	if err != nil {
		return err
	}
	defer conn.Close()

	if f.subprotocol != "" && resp.Header.Get("Sec-WebSocket-Protocol") != "" {
		fmt.Printf("Connected (subprotocol: %s)\n", resp.Header.Get("Sec-WebSocket-Protocol"))
	} else {
		fmt.Println("Connected. Type messages and press Enter to send. Ctrl+C to exit.")
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nDisconnecting...")
		cancel()
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}()

	// Channel for incoming messages
	msgChan := make(chan wsMessage, 100)
	errChan := make(chan error, 1)

	// Goroutine for reading messages
	go func() {
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
					errChan <- err
					return
				}
			}
			msgChan <- wsMessage{Type: messageType, Data: message}
		}
	}()

	// Goroutine for reading user input
	inputChan := make(chan string, 10)
	go func() {
		defer close(inputChan)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			case inputChan <- scanner.Text():
			}
		}
	}()

	// Main loop
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errChan:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				fmt.Println("Connection closed by server")
				return nil
			}
			return fmt.Errorf("read error: %v", err)
		case msg := <-msgChan:
			printReceived(msg.Type, msg.Data)
		case input, ok := <-inputChan:
			if !ok {
				// stdin closed (piped input ended); close politely
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			if input == "" {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(input)); err != nil {
				return fmt.Errorf("send error: %v", err)
			}
			if jsonOutput {
				writeJSONLine(map[string]interface{}{
					"direction": "sent",
					"type":      "text",
					"data":      input,
					"timestamp": time.Now().Format(time.RFC3339),
				})
			} else {
				fmt.Printf("> %s\n", input)
			}
		}
	}
}

// runClientSend sends a single message to a WebSocket endpoint.
func runClientSend(url, message string, f *clientFlags) error {
	// Load message from file if prefixed with @
	if len(message) > 0 && message[0] == '@' {
		msgBytes, err := os.ReadFile(message[1:])
		if err != nil {
			return fmt.Errorf("failed to read message file: %w", err)
		}
		message = string(msgBytes)
	}

	conn, _, err := dialEndpoint(url, f)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Send message
	if err := conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
		return fmt.Errorf("send error: %v", err)
	}

	// Close gracefully
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	if jsonOutput {
		out := map[string]interface{}{
			"success":   true,
			"url":       url,
			"message":   message,
			"timestamp": time.Now().Format(time.RFC3339),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Sent to %s: %s\n", url, message)
	return nil
}

// runClientListen listens for incoming WebSocket messages.
func runClientListen(url string, f *clientFlags) error {
	fmt.Fprintf(os.Stderr, "Connecting to %s...\n", url)
	conn, _, err := dialEndpoint(url, f)
	if err != nil {
		return err
	}
	defer conn.Close()

	if f.count > 0 {
		fmt.Fprintf(os.Stderr, "Listening for %d messages (Ctrl+C to stop)\n", f.count)
	} else {
		fmt.Fprintf(os.Stderr, "Listening for messages (Ctrl+C to stop)\n")
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Use WaitGroup for clean shutdown
	var wg sync.WaitGroup

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nDisconnecting...")
		cancel()
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}()

	received := 0
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			messageType, message, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
					if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						fmt.Fprintln(os.Stderr, "Connection closed by server")
						return
					}
					fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
					return
				}
			}

			if jsonOutput {
				writeJSONLine(map[string]interface{}{
					"type":      messageTypeString(messageType),
					"data":      string(message),
					"timestamp": time.Now().Format(time.RFC3339),
					"index":     received,
				})
			} else {
				fmt.Println(string(message))
			}

			received++
			if f.count > 0 && received >= f.count {
				fmt.Fprintf(os.Stderr, "Received %d messages\n", received)
				cancel()
				return
			}
		}
	}()

	wg.Wait()
	return nil
}

// printReceived prints one incoming message in plain or JSON form.
func printReceived(messageType int, data []byte) {
	if jsonOutput {
		writeJSONLine(map[string]interface{}{
			"type":      messageTypeString(messageType),
			"data":      string(data),
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return
	}
	fmt.Printf("< %s\n", string(data))
}

// writeJSONLine encodes one value per line to stdout.
func writeJSONLine(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to encode output: %v\n", err)
	}
}
