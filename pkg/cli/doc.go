// Package cli provides the command-line interface for wsd.
//
// The cli package implements all CLI commands for the WebSocket daemon:
//   - serve: Launch the WebSocket echo server in the foreground
//   - client connect: Interactive WebSocket client (REPL mode)
//   - client send: Send a single message and exit
//   - client listen: Stream incoming messages
//   - version: Show wsd version
//
// The serve command reads an optional YAML configuration file; flags given
// on the command line override values from the file. The server runs until
// SIGINT or SIGTERM, then drains open connections gracefully.
//
// Usage:
//
//	wsd serve --listen :8765 --log-level debug
//	wsd serve --config wsd.yaml
//	wsd client connect ws://localhost:8765/chat
//	wsd client send ws://localhost:8765/ "hello"
//	wsd client listen -n 10 ws://localhost:8765/feed
package cli
