// Package logging provides structured logging for the AI monitor server.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the server. It provides both general logging
// functions and specialized functions for protocol-specific logging needs.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (hex dumps, frame parsing, ping/pong)
//   - Info: Normal operations (connections, relays, state changes)
//   - Warn: Non-fatal issues (rejected connections, retries)
//   - Error: Fatal issues (startup failures, transport errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Client connected",
//	    zap.String("remote_addr", "192.168.1.100"),
//	    zap.Int("session_count", 2),
//	)
//
// # Output Terms
//
// Besides the normal stdout/stderr outputs, log lines can be forwarded to
// registered output terms. The monitor server uses this to relay log lines
// to clients subscribed to the custom-log payload type:
//
//	logging.AddOutputTerm("AI_MON", func(line string) { ... })
//	logging.RemoveOutputTerm("AI_MON")
//
// Term functions run inline on the logging call path and must not call back
// into this package.
//
// # Configuration
//
// Initialize logging at server startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given, the AIMON_LOG_LEVEL environment variable is
// consulted; if that is also unset, logging is silent.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
