// Package config provides the configuration file format for the wsd daemon.
//
// This package defines the structures loaded from the daemon's YAML
// configuration file:
//   - Config: Top-level daemon settings like listen address and timeouts
//   - LogConfig: Log level and output format
//   - EchoConfig: Behavior of the built-in echo handler
//
// File-based Configuration:
//
// The daemon configuration is loaded from a YAML file:
//
//	cfg, err := config.Load("wsd.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The YAML format follows the Config structure:
//
//	listen: ":8765"
//	serverName: wsd
//	maxConnections: 100
//	handshakeTimeout: 10s
//	shutdownTimeout: 5s
//	log:
//	  level: info
//	  format: text
//	echo:
//	  announce: "welcome"
//
// Absent keys keep their default values. Unknown keys are rejected so
// that typos surface as load errors instead of silently ignored settings.
package config
