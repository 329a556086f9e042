// Package logging provides structured logging for deyectl.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the tool.
//
// # Features
//
//   - Text output for interactive use (human-readable)
//   - JSON output for scripting (machine-parsable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the logging section of the config file:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("device resolved", "device_id", id)
//	logger.Error("query failed", "error", err)
//
// # Security
//
// Never log secrets, tokens, or passwords. Broker credentials and auth
// tokens must stay out of log fields.
package logging
