// Package logging provides structured logging for the LightLink binaries.
//
// This package wraps Go's standard log/slog package so that every bridge
// and the bus monitor emit the same fields in the same shape.
//
// # Features
//
//   - Text output by default (bridges usually run in a terminal)
//   - JSON output for log shippers
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "sensor-bridge", version)
//	logger.Info("published reading", "value", 42)
//	logger.Error("serial read failed", "error", err)
//
// Never log broker passwords or InfluxDB tokens.
package logging
