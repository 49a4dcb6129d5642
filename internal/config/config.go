package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Pricelens configuration
type Config struct {
	Scan    ScanConfig    `mapstructure:"scan"`
	Rewrite RewriteConfig `mapstructure:"rewrite"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ScanConfig controls the scan-and-batch engine
type ScanConfig struct {
	// MarkerClass is the class stamped on converted output. The engine never
	// re-queues or re-walks anything inside an element carrying it.
	// Keep in sync with scanner.DefaultMarker.
	MarkerClass string `mapstructure:"marker_class"`
	// MaxPendingNodes bounds the combined size of the pending queues before
	// the overflow policy applies
	MaxPendingNodes int `mapstructure:"max_pending_nodes"`
	// OverflowPolicy is what happens past max_pending_nodes
	// Options: "warn" (log and keep queueing), "drop" (log and reject)
	OverflowPolicy string `mapstructure:"overflow_policy"`
	// DebounceMs is the quiet period after a mutation burst before a batch
	// pass runs (in milliseconds)
	DebounceMs int `mapstructure:"debounce_ms"`
	// Parallelism is the number of documents scanned concurrently by
	// `pricelens scan` with multiple inputs
	Parallelism int `mapstructure:"parallelism"`
}

// RewriteConfig controls the reference annotator. The pattern and template
// are ordinary user configuration, not a built-in grammar; the defaults
// match plain dollar amounts and reproduce them unchanged.
type RewriteConfig struct {
	// Pattern is the regular expression applied to text node content
	Pattern string `mapstructure:"pattern"`
	// Template renders the replacement for each match using Go
	// text/template syntax; it receives {{.Match}} and {{.Groups}}
	Template string `mapstructure:"template"`
	// KeepOriginal stores the raw matched text in a data attribute on each
	// emitted span so rewrites stay reversible
	KeepOriginal bool `mapstructure:"keep_original"`
}

// WatchConfig controls filesystem watching for `pricelens watch`
type WatchConfig struct {
	// SettleMs is the quiet period after filesystem activity before a
	// change batch is delivered (in milliseconds)
	SettleMs int `mapstructure:"settle_ms"`
	// Extensions filters directory events to these file extensions
	// (dot included). Files watched directly bypass the filter.
	Extensions []string `mapstructure:"extensions"`
	// IgnorePatterns are glob patterns; matching paths never trigger a
	// rescan (e.g. "*.tmp", "**/node_modules/**")
	IgnorePatterns []string `mapstructure:"ignore_patterns"`
	// OutDir is where annotated documents are written after each pass.
	// Empty means no output files are produced during watch.
	OutDir string `mapstructure:"out_dir"`
	// Interactive launches the dashboard instead of the plain log stream
	Interactive bool `mapstructure:"interactive"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory the log file is written to. Empty means stderr.
	Dir string `mapstructure:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated log files
	Compress bool `mapstructure:"compress"`
}

// DebounceInterval returns the debounce quiet period as a time.Duration
func (s *ScanConfig) DebounceInterval() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// SettleInterval returns the filesystem settle period as a time.Duration
func (w *WatchConfig) SettleInterval() time.Duration {
	return time.Duration(w.SettleMs) * time.Millisecond
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			MarkerClass:     "plens-converted",
			MaxPendingNodes: 5000,
			OverflowPolicy:  "warn",
			DebounceMs:      150,
			Parallelism:     4,
		},
		Rewrite: RewriteConfig{
			Pattern:      `\$\s?\d[\d,]*(?:\.\d{2})?`,
			Template:     "{{.Match}}",
			KeepOriginal: false,
		},
		Watch: WatchConfig{
			SettleMs:       50,
			Extensions:     []string{".html", ".htm", ".xhtml"},
			IgnorePatterns: []string{},
			OutDir:         "",
			Interactive:    false,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Scan defaults
	viper.SetDefault("scan.marker_class", defaults.Scan.MarkerClass)
	viper.SetDefault("scan.max_pending_nodes", defaults.Scan.MaxPendingNodes)
	viper.SetDefault("scan.overflow_policy", defaults.Scan.OverflowPolicy)
	viper.SetDefault("scan.debounce_ms", defaults.Scan.DebounceMs)
	viper.SetDefault("scan.parallelism", defaults.Scan.Parallelism)

	// Rewrite defaults
	viper.SetDefault("rewrite.pattern", defaults.Rewrite.Pattern)
	viper.SetDefault("rewrite.template", defaults.Rewrite.Template)
	viper.SetDefault("rewrite.keep_original", defaults.Rewrite.KeepOriginal)

	// Watch defaults
	viper.SetDefault("watch.settle_ms", defaults.Watch.SettleMs)
	viper.SetDefault("watch.extensions", defaults.Watch.Extensions)
	viper.SetDefault("watch.ignore_patterns", defaults.Watch.IgnorePatterns)
	viper.SetDefault("watch.out_dir", defaults.Watch.OutDir)
	viper.SetDefault("watch.interactive", defaults.Watch.Interactive)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pricelens")
	}
	// Fall back to ~/.config/pricelens
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pricelens"
	}
	return filepath.Join(home, ".config", "pricelens")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidOverflowPolicies returns the list of valid overflow policy values
func ValidOverflowPolicies() []string {
	return []string{"warn", "drop"}
}

// IsValidOverflowPolicy checks if the given policy is valid
func IsValidOverflowPolicy(policy string) bool {
	for _, valid := range ValidOverflowPolicies() {
		if policy == valid {
			return true
		}
	}
	return false
}
