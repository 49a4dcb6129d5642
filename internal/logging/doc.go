// Package logging provides structured logging for Pricelens runs.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation support for debugging and post-hoc analysis. Scan
// and watch runs emit queue warnings and per-pass diagnostics that are
// easiest to interpret as structured, filterable records.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (component, scanner ID, document, pass)
//   - Log rotation with configurable size limits
//   - Optional gzip compression for rotated logs
//   - Post-hoc aggregation, filtering, and export (JSON, text, CSV)
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Logger] type
// uses Go's slog internally which is designed for concurrent access. The
// [RotatingWriter] type uses a mutex to protect file operations during
// rotation. Child loggers created via With* methods share the underlying
// writer safely.
//
// # Basic Usage
//
// Create a logger for a log directory:
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	// Log messages at various levels
//	logger.Debug("detailed info", "key", "value")
//	logger.Info("operation completed", "duration_ms", 150)
//	logger.Warn("potential issue", "threshold", 100)
//	logger.Error("operation failed", "error", err.Error())
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	// Add component context
//	scanLogger := logger.WithComponent("scanner")
//
//	// Add scanner state context
//	stateLogger := scanLogger.WithScanner("4c1f20aa")
//
//	// Add document context
//	docLogger := stateLogger.WithDocument("listings/page.html")
//
//	// All logs from docLogger include component, scanner_id, and document
//	docLogger.Info("pass complete", "conversions", 12)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"pass complete","component":"scanner","scanner_id":"4c1f20aa","document":"listings/page.html","conversions":12}
//
// # Log Rotation
//
// For long watch sessions, use log rotation to prevent unbounded growth:
//
//	config := logging.RotationConfig{
//	    MaxSizeMB:  10,    // Rotate when file exceeds 10MB
//	    MaxBackups: 3,     // Keep 3 backup files
//	    Compress:   true,  // Gzip compress rotated files
//	}
//
//	logger, err := logging.NewLoggerWithRotation("/path/to/logs", "INFO", config)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
// Rotated files are named: pricelens.log.1, pricelens.log.2, etc., where
// .1 is the most recent backup. When compression is enabled, rotated files
// become pricelens.log.1.gz, etc.
//
// # Log Aggregation
//
// After a run, aggregate logs from the log directory for analysis:
//
//	entries, err := logging.AggregateLogs(logDir)
//	if err != nil {
//	    return err
//	}
//
//	// Narrow to one scanner's warnings
//	filtered := logging.FilterLogs(entries, logging.LogFilter{
//	    Level:     "WARN",
//	    ScannerID: "4c1f20aa",
//	})
//
//	// Export for external tooling
//	err = logging.ExportLogEntries(filtered, "warnings.csv", "csv")
//
// The `pricelens logs` command exposes the same aggregation from the CLI.
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output:
//
//	func TestSomething(t *testing.T) {
//	    logger := logging.NopLogger()
//	    // Use logger in tests without creating files
//	}
//
// # Log Levels
//
// The package defines four log levels:
//
//   - [LevelDebug]: Detailed information for debugging
//   - [LevelInfo]: General operational information (default)
//   - [LevelWarn]: Warning conditions that may need attention
//   - [LevelError]: Error conditions that affect functionality
//
// Use [ValidLevels] to get the list of valid level strings, and [ParseLevel]
// to normalize user-provided level strings.
//
// # Configuration
//
// The logging system is typically configured via the Pricelens config file:
//
//	logging:
//	  enabled: true
//	  level: info
//	  max_size_mb: 10
//	  max_backups: 3
package logging
