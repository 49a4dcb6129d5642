package config

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "scan.max_pending_nodes")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// markerClassRegex validates marker class characters. The marker is written
// into class attributes and must stay a single CSS class token.
var markerClassRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// IsValidMarkerClass checks whether s can serve as the marker class.
func IsValidMarkerClass(s string) bool {
	return markerClassRegex.MatchString(s)
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Scan config
	errors = append(errors, c.validateScan()...)

	// Validate Rewrite config
	errors = append(errors, c.validateRewrite()...)

	// Validate Watch config
	errors = append(errors, c.validateWatch()...)

	// Validate Logging config
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateScan validates the ScanConfig
func (c *Config) validateScan() []ValidationError {
	var errors []ValidationError

	if c.Scan.MarkerClass == "" {
		errors = append(errors, ValidationError{
			Field:   "scan.marker_class",
			Value:   c.Scan.MarkerClass,
			Message: "must not be empty",
		})
	} else if !markerClassRegex.MatchString(c.Scan.MarkerClass) {
		errors = append(errors, ValidationError{
			Field:   "scan.marker_class",
			Value:   c.Scan.MarkerClass,
			Message: "must be a single class token (letters, digits, hyphen, underscore)",
		})
	}

	// Queue bound validation
	const minPendingNodes = 1
	const maxPendingNodes = 1_000_000

	if c.Scan.MaxPendingNodes < minPendingNodes {
		errors = append(errors, ValidationError{
			Field:   "scan.max_pending_nodes",
			Value:   c.Scan.MaxPendingNodes,
			Message: fmt.Sprintf("must be at least %d", minPendingNodes),
		})
	}
	if c.Scan.MaxPendingNodes > maxPendingNodes {
		errors = append(errors, ValidationError{
			Field:   "scan.max_pending_nodes",
			Value:   c.Scan.MaxPendingNodes,
			Message: fmt.Sprintf("exceeds maximum of %d", maxPendingNodes),
		})
	}

	if c.Scan.OverflowPolicy != "" && !IsValidOverflowPolicy(c.Scan.OverflowPolicy) {
		errors = append(errors, ValidationError{
			Field:   "scan.overflow_policy",
			Value:   c.Scan.OverflowPolicy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidOverflowPolicies(), ", ")),
		})
	}

	// Debounce interval validation
	const minDebounceMs = 1
	const maxDebounceMs = 60_000 // 1 minute

	if c.Scan.DebounceMs < minDebounceMs {
		errors = append(errors, ValidationError{
			Field:   "scan.debounce_ms",
			Value:   c.Scan.DebounceMs,
			Message: fmt.Sprintf("must be at least %dms", minDebounceMs),
		})
	}
	if c.Scan.DebounceMs > maxDebounceMs {
		errors = append(errors, ValidationError{
			Field:   "scan.debounce_ms",
			Value:   c.Scan.DebounceMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxDebounceMs),
		})
	}

	// Parallelism validation
	const minParallelism = 1
	const maxParallelism = 64

	if c.Scan.Parallelism < minParallelism {
		errors = append(errors, ValidationError{
			Field:   "scan.parallelism",
			Value:   c.Scan.Parallelism,
			Message: fmt.Sprintf("must be at least %d", minParallelism),
		})
	}
	if c.Scan.Parallelism > maxParallelism {
		errors = append(errors, ValidationError{
			Field:   "scan.parallelism",
			Value:   c.Scan.Parallelism,
			Message: fmt.Sprintf("exceeds maximum of %d", maxParallelism),
		})
	}

	return errors
}

// validateRewrite validates the RewriteConfig
func (c *Config) validateRewrite() []ValidationError {
	var errors []ValidationError

	if c.Rewrite.Pattern == "" {
		errors = append(errors, ValidationError{
			Field:   "rewrite.pattern",
			Value:   c.Rewrite.Pattern,
			Message: "must not be empty",
		})
	} else if _, err := regexp.Compile(c.Rewrite.Pattern); err != nil {
		errors = append(errors, ValidationError{
			Field:   "rewrite.pattern",
			Value:   c.Rewrite.Pattern,
			Message: fmt.Sprintf("invalid regular expression: %v", err),
		})
	}

	if c.Rewrite.Template != "" {
		if _, err := template.New("rewrite").Parse(c.Rewrite.Template); err != nil {
			errors = append(errors, ValidationError{
				Field:   "rewrite.template",
				Value:   c.Rewrite.Template,
				Message: fmt.Sprintf("invalid template: %v", err),
			})
		}
	}

	return errors
}

// validateWatch validates the WatchConfig
func (c *Config) validateWatch() []ValidationError {
	var errors []ValidationError

	// Settle interval validation
	const minSettleMs = 1
	const maxSettleMs = 10_000 // 10 seconds

	if c.Watch.SettleMs < minSettleMs {
		errors = append(errors, ValidationError{
			Field:   "watch.settle_ms",
			Value:   c.Watch.SettleMs,
			Message: fmt.Sprintf("must be at least %dms", minSettleMs),
		})
	}
	if c.Watch.SettleMs > maxSettleMs {
		errors = append(errors, ValidationError{
			Field:   "watch.settle_ms",
			Value:   c.Watch.SettleMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxSettleMs),
		})
	}

	for _, ext := range c.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errors = append(errors, ValidationError{
				Field:   "watch.extensions",
				Value:   ext,
				Message: "extensions must start with a dot (e.g. \".html\")",
			})
		}
	}

	for _, pattern := range c.Watch.IgnorePatterns {
		if _, err := glob.Compile(pattern); err != nil {
			errors = append(errors, ValidationError{
				Field:   "watch.ignore_patterns",
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" {
		valid := false
		for _, level := range ValidLogLevels() {
			if strings.EqualFold(c.Logging.Level, level) {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, ValidationError{
				Field:   "logging.level",
				Value:   c.Logging.Level,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
			})
		}
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}

	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	const maxBackupsLimit = 100
	if c.Logging.MaxBackups > maxBackupsLimit {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: fmt.Sprintf("exceeds maximum of %d", maxBackupsLimit),
		})
	}

	return errors
}
