package config

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultListen is the default address the daemon listens on.
const DefaultListen = ":8765"

// DefaultServerName is the default value of the Server response header.
const DefaultServerName = "wsd"

// DefaultMaxConnections is the default connection cap (0 = unlimited).
const DefaultMaxConnections = 0

// DefaultHandshakeTimeout is the default opening handshake deadline.
const DefaultHandshakeTimeout = Duration(10 * time.Second)

// DefaultShutdownTimeout is the default graceful drain window during shutdown.
const DefaultShutdownTimeout = Duration(5 * time.Second)

// DefaultLogLevel is the default log level.
const DefaultLogLevel = "info"

// DefaultLogFormat is the default log output format.
const DefaultLogFormat = "text"

// Config represents the complete configuration for the wsd daemon.
// Values flow from two sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Config file values
// 3. Default values (lowest priority)
type Config struct {
	// Server settings
	Listen           string   `yaml:"listen" json:"listen"`
	ServerName       string   `yaml:"serverName" json:"serverName"`
	MaxConnections   int      `yaml:"maxConnections" json:"maxConnections"`
	HandshakeTimeout Duration `yaml:"handshakeTimeout" json:"handshakeTimeout"`
	ShutdownTimeout  Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`

	// Logging settings
	Log LogConfig `yaml:"log" json:"log"`

	// Echo handler settings
	Echo EchoConfig `yaml:"echo" json:"echo"`
}

// LogConfig controls daemon logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // text, json
}

// EchoConfig controls the built-in echo handler.
type EchoConfig struct {
	// Announce is an optional text message sent to each client right
	// after the handshake completes. Empty means no greeting.
	Announce string `yaml:"announce,omitempty" json:"announce,omitempty"`
}

// NewDefault creates a new Config with default values.
func NewDefault() *Config {
	return &Config{
		Listen:           DefaultListen,
		ServerName:       DefaultServerName,
		MaxConnections:   DefaultMaxConnections,
		HandshakeTimeout: DefaultHandshakeTimeout,
		ShutdownTimeout:  DefaultShutdownTimeout,
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Validate checks the configuration for values that cannot be served.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address cannot be empty")
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("maxConnections cannot be negative: %d", c.MaxConnections)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format: %q", c.Log.Format)
	}
	return nil
}

// Duration is a time.Duration that reads from YAML as a Go duration
// string such as "10s" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}
