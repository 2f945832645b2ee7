package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getmockd/wsd/pkg/config"
	"github.com/getmockd/wsd/pkg/logging"
	"github.com/getmockd/wsd/pkg/server"
	"github.com/spf13/cobra"
)

// serveFlags holds the command-line values bound to the serve command.
type serveFlags struct {
	listen           string
	configFile       string
	serverName       string
	maxConnections   int
	handshakeTimeout time.Duration
	shutdownTimeout  time.Duration
	logLevel         string
	logFormat        string
	announce         string
	checkConfig      bool
}

// serveFlagVals is the package-level instance bound to cobra flags.
var serveFlagVals serveFlags

// serveCmd represents the serve command — the foreground echo server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebSocket echo server (foreground)",
	Long: `Start the WebSocket server with the built-in echo handler.

Every text or binary message a client sends is reflected back unchanged.
An optional announce message can be sent to each client right after the
opening handshake completes.

Configuration can come from a YAML file (--config) or flags; flags given
explicitly on the command line override file values. The server runs until
SIGINT or SIGTERM and then drains open connections gracefully.`,
	Example: `  # Start with defaults on :8765
  wsd serve

  # Start on a custom address with debug logging
  wsd serve --listen :9100 --log-level debug

  # Start from a configuration file
  wsd serve --config wsd.yaml

  # Greet each client and cap concurrent connections
  wsd serve --announce "welcome" --max-connections 100`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, &serveFlagVals)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals
	serveCmd.Flags().StringVarP(&f.listen, "listen", "l", config.DefaultListen, "TCP listen address")
	serveCmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to YAML configuration file")
	serveCmd.Flags().StringVar(&f.serverName, "server-name", config.DefaultServerName, "Value of the Server response header")
	serveCmd.Flags().IntVar(&f.maxConnections, "max-connections", config.DefaultMaxConnections, "Maximum concurrent connections (0 = unlimited)")
	serveCmd.Flags().DurationVar(&f.handshakeTimeout, "handshake-timeout", time.Duration(config.DefaultHandshakeTimeout), "Opening handshake deadline")
	serveCmd.Flags().DurationVar(&f.shutdownTimeout, "shutdown-timeout", time.Duration(config.DefaultShutdownTimeout), "Graceful drain window on shutdown")
	serveCmd.Flags().StringVar(&f.logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", config.DefaultLogFormat, "Log format (text, json)")
	serveCmd.Flags().StringVar(&f.announce, "announce", "", "Text message sent to each client on connect")
	serveCmd.Flags().BoolVar(&f.checkConfig, "check-config", false, "Validate the configuration and exit")
}

// buildServeConfig merges the config file (if any) with command-line
// overrides. Flags set explicitly on the command line win over file values.
func buildServeConfig(cmd *cobra.Command, f *serveFlags) (*config.Config, error) {
	cfg := config.NewDefault()
	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fl := cmd.Flags()
	if fl.Changed("listen") {
		cfg.Listen = f.listen
	}
	if fl.Changed("server-name") {
		cfg.ServerName = f.serverName
	}
	if fl.Changed("max-connections") {
		cfg.MaxConnections = f.maxConnections
	}
	if fl.Changed("handshake-timeout") {
		cfg.HandshakeTimeout = config.Duration(f.handshakeTimeout)
	}
	if fl.Changed("shutdown-timeout") {
		cfg.ShutdownTimeout = config.Duration(f.shutdownTimeout)
	}
	if fl.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fl.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if fl.Changed("announce") {
		cfg.Echo.Announce = f.announce
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, f *serveFlags) error {
	cfg, err := buildServeConfig(cmd, f)
	if err != nil {
		return err
	}

	if f.checkConfig {
		fmt.Println("configuration OK")
		return nil
	}

	// Initialize structured logger
	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
	})

	srv, err := server.New(&server.Config{
		Addr:             cfg.Listen,
		ServerName:       cfg.ServerName,
		Handler:          server.EchoHandler(cfg.Echo.Announce),
		MaxConnections:   cfg.MaxConnections,
		HandshakeTimeout: time.Duration(cfg.HandshakeTimeout),
		ShutdownTimeout:  time.Duration(cfg.ShutdownTimeout),
		Logger:           log,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	fmt.Printf("wsd listening on %s (echo handler)\n", srv.Addr())
	fmt.Println("Press Ctrl+C to stop")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nShutting down...")

	if err := srv.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: server shutdown error: %v\n", err)
	}

	fmt.Println("Server stopped")
	return nil
}
