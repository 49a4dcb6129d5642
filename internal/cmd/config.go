package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pricelens/pricelens/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify Pricelens configuration",
	Long: `View or modify Pricelens configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  pricelens config set scan.marker_class shop-converted
  pricelens config set scan.debounce_ms 300
  pricelens config set rewrite.pattern '€\s?\d+(?:,\d{2})?'

Valid keys:
  scan.marker_class       - Class stamped on converted output
  scan.max_pending_nodes  - Pending queue bound before overflow policy applies
  scan.overflow_policy    - Behavior past the bound (warn/drop)
  scan.debounce_ms        - Quiet period before a batch pass in milliseconds
  scan.parallelism        - Documents scanned concurrently
  rewrite.pattern         - Regular expression applied to text nodes
  rewrite.template        - Replacement template ({{.Match}}, {{.Groups}})
  rewrite.keep_original   - Store matched text in a data attribute (true/false)
  watch.settle_ms         - Filesystem settle period in milliseconds
  watch.out_dir           - Where watch writes annotated copies
  watch.interactive       - Launch the dashboard by default (true/false)
  logging.enabled         - Enable debug logging (true/false)
  logging.level           - Log level (debug/info/warn/error)
  logging.dir             - Log file directory (empty logs to stderr)
  logging.max_size_mb     - Log size before rotation
  logging.max_backups     - Rotated log files to keep
  logging.compress        - Gzip rotated log files (true/false)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/pricelens/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	fmt.Println("Current configuration:")
	fmt.Println()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	// Scan settings
	fmt.Println("scan:")
	fmt.Printf("  marker_class: %s\n", cfg.Scan.MarkerClass)
	fmt.Printf("  max_pending_nodes: %d\n", cfg.Scan.MaxPendingNodes)
	fmt.Printf("  overflow_policy: %s\n", cfg.Scan.OverflowPolicy)
	fmt.Printf("  debounce_ms: %d\n", cfg.Scan.DebounceMs)
	fmt.Printf("  parallelism: %d\n", cfg.Scan.Parallelism)

	// Rewrite settings
	fmt.Println("rewrite:")
	fmt.Printf("  pattern: %s\n", cfg.Rewrite.Pattern)
	fmt.Printf("  template: %s\n", cfg.Rewrite.Template)
	fmt.Printf("  keep_original: %v\n", cfg.Rewrite.KeepOriginal)

	// Watch settings
	fmt.Println("watch:")
	fmt.Printf("  settle_ms: %d\n", cfg.Watch.SettleMs)
	fmt.Printf("  extensions: %s\n", strings.Join(cfg.Watch.Extensions, ", "))
	if len(cfg.Watch.IgnorePatterns) > 0 {
		fmt.Printf("  ignore_patterns: %s\n", strings.Join(cfg.Watch.IgnorePatterns, ", "))
	}
	if cfg.Watch.OutDir != "" {
		fmt.Printf("  out_dir: %s\n", cfg.Watch.OutDir)
	}
	fmt.Printf("  interactive: %v\n", cfg.Watch.Interactive)

	// Logging settings
	fmt.Println("logging:")
	fmt.Printf("  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Printf("  level: %s\n", cfg.Logging.Level)
	if cfg.Logging.Dir != "" {
		fmt.Printf("  dir: %s\n", cfg.Logging.Dir)
	}
	fmt.Printf("  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Printf("  max_backups: %d\n", cfg.Logging.MaxBackups)
	fmt.Printf("  compress: %v\n", cfg.Logging.Compress)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Validate the key exists
	validKeys := map[string]string{
		"scan.marker_class":      "string",
		"scan.max_pending_nodes": "int",
		"scan.overflow_policy":   "string",
		"scan.debounce_ms":       "int",
		"scan.parallelism":       "int",
		"rewrite.pattern":        "string",
		"rewrite.template":       "string",
		"rewrite.keep_original":  "bool",
		"watch.settle_ms":        "int",
		"watch.out_dir":          "string",
		"watch.interactive":      "bool",
		"logging.enabled":        "bool",
		"logging.level":          "string",
		"logging.dir":            "string",
		"logging.max_size_mb":    "int",
		"logging.max_backups":    "int",
		"logging.compress":       "bool",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'pricelens config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue interface{}
	switch keyType {
	case "string":
		if err := validateStringKey(key, value); err != nil {
			return err
		}
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = intVal
	}

	// Set the value in viper, then run the merged result through full
	// validation so range errors surface before anything is written.
	viper.Set(key, typedValue)

	var merged config.Config
	if err := viper.Unmarshal(&merged); err != nil {
		return fmt.Errorf("failed to apply value: %w", err)
	}
	if errs := merged.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid value for %s:\n%s", key, config.ValidationErrors(errs).Error())
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write to config file
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config saved to %s\n", configFile)

	return nil
}

// validateStringKey applies the checks specific to string-valued keys.
func validateStringKey(key, value string) error {
	switch key {
	case "scan.marker_class":
		if !config.IsValidMarkerClass(value) {
			return fmt.Errorf("invalid value for %s: %s\nMust be a single CSS class token", key, value)
		}
	case "scan.overflow_policy":
		if !config.IsValidOverflowPolicy(value) {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidOverflowPolicies(), ", "))
		}
	case "logging.level":
		valid := false
		for _, l := range config.ValidLogLevels() {
			if strings.EqualFold(value, l) {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidLogLevels(), ", "))
		}
	case "rewrite.pattern":
		if _, err := regexp.Compile(value); err != nil {
			return fmt.Errorf("invalid value for %s: %v", key, err)
		}
	case "rewrite.template":
		if _, err := template.New("rewrite").Parse(value); err != nil {
			return fmt.Errorf("invalid value for %s: %v", key, err)
		}
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'pricelens config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# Pricelens Configuration
# See: https://github.com/pricelens/pricelens

# Scan engine settings
scan:
  # Class stamped on converted output; marked subtrees are never rescanned
  marker_class: plens-converted
  # Pending queue bound before the overflow policy applies
  max_pending_nodes: 5000
  # Behavior past max_pending_nodes
  # Options: warn (log and keep queueing), drop (log and reject)
  overflow_policy: warn
  # Quiet period after a mutation burst before a batch pass, in milliseconds
  debounce_ms: 150
  # Documents scanned concurrently by 'pricelens scan'
  parallelism: 4

# Rewrite settings
rewrite:
  # Regular expression applied to text node content
  pattern: '\$\s?\d[\d,]*(?:\.\d{2})?'
  # Replacement template; receives {{.Match}} and {{.Groups}}
  template: '{{.Match}}'
  # Store the raw matched text in a data attribute (keeps rewrites reversible)
  keep_original: false

# Watch settings
watch:
  # Quiet period after filesystem activity before changes are delivered
  settle_ms: 50
  # File extensions picked up from watched directories
  extensions: [".html", ".htm", ".xhtml"]
  # Glob patterns that never trigger a rescan
  ignore_patterns: []
  # Where annotated copies are written after each pass (empty: no copies)
  out_dir: ""
  # Launch the dashboard instead of the plain log stream
  interactive: false

# Logging settings
logging:
  enabled: true
  # Log level: debug, info, warn, error
  level: info
  # Log file directory (empty logs to stderr)
  dir: ""
  # Log file size in megabytes before rotation
  max_size_mb: 10
  # Rotated log files to keep
  max_backups: 3
  # Gzip rotated log files
  compress: false
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	fmt.Println("Edit this file to customize Pricelens's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Println("\nSearch paths:")
	fmt.Printf("  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Printf("  2. $HOME/.config/pricelens/config.yaml\n")
	fmt.Printf("  3. ./config.yaml (current directory)\n")
	fmt.Println("\nEnvironment variables: PRICELENS_* (e.g., PRICELENS_SCAN_DEBOUNCE_MS)")

	return nil
}
