package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// resetServeFlags restores every serve flag to its default and clears the
// Changed markers so tests do not leak state into each other.
func resetServeFlags(t *testing.T) {
	t.Helper()
	serveCmd.Flags().Visit(func(fl *pflag.Flag) {
		if err := fl.Value.Set(fl.DefValue); err != nil {
			t.Fatalf("reset flag %s: %v", fl.Name, err)
		}
		fl.Changed = false
	})
}

func setServeFlag(t *testing.T, name, value string) {
	t.Helper()
	if err := serveCmd.Flags().Set(name, value); err != nil {
		t.Fatalf("set flag %s=%s: %v", name, value, err)
	}
}

func TestBuildServeConfig_Defaults(t *testing.T) {
	resetServeFlags(t)

	cfg, err := buildServeConfig(serveCmd, &serveFlagVals)
	if err != nil {
		t.Fatalf("buildServeConfig: %v", err)
	}

	if cfg.Listen != ":8765" {
		t.Errorf("Listen = %q, want :8765", cfg.Listen)
	}
	if cfg.ServerName != "wsd" {
		t.Errorf("ServerName = %q, want wsd", cfg.ServerName)
	}
	if time.Duration(cfg.HandshakeTimeout) != 10*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 10s", time.Duration(cfg.HandshakeTimeout))
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
}

func TestBuildServeConfig_FlagsOnly(t *testing.T) {
	resetServeFlags(t)
	setServeFlag(t, "listen", ":9100")
	setServeFlag(t, "log-level", "debug")
	setServeFlag(t, "announce", "hi there")
	setServeFlag(t, "shutdown-timeout", "250ms")

	cfg, err := buildServeConfig(serveCmd, &serveFlagVals)
	if err != nil {
		t.Fatalf("buildServeConfig: %v", err)
	}

	if cfg.Listen != ":9100" {
		t.Errorf("Listen = %q, want :9100", cfg.Listen)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Echo.Announce != "hi there" {
		t.Errorf("Echo.Announce = %q, want hi there", cfg.Echo.Announce)
	}
	if time.Duration(cfg.ShutdownTimeout) != 250*time.Millisecond {
		t.Errorf("ShutdownTimeout = %v, want 250ms", time.Duration(cfg.ShutdownTimeout))
	}
	// Untouched values keep their defaults
	if cfg.ServerName != "wsd" {
		t.Errorf("ServerName = %q, want wsd", cfg.ServerName)
	}
}

func TestBuildServeConfig_FlagsOverrideFile(t *testing.T) {
	resetServeFlags(t)

	path := filepath.Join(t.TempDir(), "wsd.yaml")
	content := `
listen: ":9000"
serverName: from-file
echo:
  announce: file greeting
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	setServeFlag(t, "config", path)
	setServeFlag(t, "listen", ":7777")

	cfg, err := buildServeConfig(serveCmd, &serveFlagVals)
	if err != nil {
		t.Fatalf("buildServeConfig: %v", err)
	}

	// Explicit flag wins over the file
	if cfg.Listen != ":7777" {
		t.Errorf("Listen = %q, want :7777 (flag over file)", cfg.Listen)
	}
	// File values without a competing flag survive
	if cfg.ServerName != "from-file" {
		t.Errorf("ServerName = %q, want from-file", cfg.ServerName)
	}
	if cfg.Echo.Announce != "file greeting" {
		t.Errorf("Echo.Announce = %q, want file greeting", cfg.Echo.Announce)
	}
}

func TestBuildServeConfig_MissingFile(t *testing.T) {
	resetServeFlags(t)
	setServeFlag(t, "config", "/nonexistent/wsd.yaml")

	_, err := buildServeConfig(serveCmd, &serveFlagVals)
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want file-not-found", err)
	}
}

func TestBuildServeConfig_InvalidLogLevel(t *testing.T) {
	resetServeFlags(t)
	setServeFlag(t, "log-level", "loud")

	_, err := buildServeConfig(serveCmd, &serveFlagVals)
	if err == nil {
		t.Fatal("expected validation error for bad log level")
	}
	if !strings.Contains(err.Error(), "unknown log level") {
		t.Errorf("error = %v, want unknown log level", err)
	}
}
