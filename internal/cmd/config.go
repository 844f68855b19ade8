package cmd

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/scribe/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify scribe configuration",
	Long: `View or modify scribe configuration.

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
  scribe config set writer.pool_size 4
  scribe config set models.premium gpt-4o
  scribe config set images.enabled false

Run 'scribe config show' to list every key.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/scribe/config.yaml with all available options.`,
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
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	writeConfig(cmd.OutOrStdout(), cfg, viper.ConfigFileUsed())
	return nil
}

func writeConfig(w io.Writer, cfg *config.Config, source string) {
	fmt.Fprintln(w, "Current configuration:")
	fmt.Fprintln(w)

	// Show where config is being read from
	if source != "" {
		fmt.Fprintf(w, "Config file: %s\n", source)
	} else {
		fmt.Fprintf(w, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "provider:")
	fmt.Fprintf(w, "  base_url: %s\n", cfg.Provider.BaseURL)
	fmt.Fprintf(w, "  api_key_env: %s (%s)\n", cfg.Provider.APIKeyEnv, envState(cfg.Provider.APIKeyEnv))
	fmt.Fprintf(w, "  image_model: %s\n", cfg.Provider.ImageModel)
	fmt.Fprintf(w, "  unsplash_key_env: %s (%s)\n", cfg.Provider.UnsplashKeyEnv, envState(cfg.Provider.UnsplashKeyEnv))
	fmt.Fprintf(w, "  brave_key_env: %s (%s)\n", cfg.Provider.BraveKeyEnv, envState(cfg.Provider.BraveKeyEnv))
	fmt.Fprintf(w, "  request_timeout_seconds: %d\n", cfg.Provider.RequestTimeoutSeconds)

	fmt.Fprintln(w, "models:")
	fmt.Fprintf(w, "  premium_pro: %s\n", cfg.Models.PremiumPro)
	fmt.Fprintf(w, "  premium: %s\n", cfg.Models.Premium)
	fmt.Fprintf(w, "  standard: %s\n", cfg.Models.Standard)
	fmt.Fprintf(w, "  economy: %s\n", cfg.Models.Economy)

	fmt.Fprintln(w, "writer:")
	fmt.Fprintf(w, "  pool_size: %d\n", cfg.Writer.PoolSize)
	fmt.Fprintf(w, "  round_delay_ms: %d\n", cfg.Writer.RoundDelayMs)
	fmt.Fprintf(w, "  temperature: %g\n", cfg.Writer.Temperature)
	fmt.Fprintf(w, "  pro_mode: %v\n", cfg.Writer.ProMode)

	fmt.Fprintln(w, "images:")
	fmt.Fprintf(w, "  enabled: %v\n", cfg.Images.Enabled)
	fmt.Fprintf(w, "  timeout_seconds: %d\n", cfg.Images.TimeoutSeconds)
	fmt.Fprintf(w, "  section_delay_ms: %d\n", cfg.Images.SectionDelayMs)
	fmt.Fprintf(w, "  per_section: %d\n", cfg.Images.PerSection)

	fmt.Fprintf(w, "research:\n  enabled: %v\n", cfg.Research.Enabled)
	fmt.Fprintf(w, "slides:\n  enabled: %v\n", cfg.Slides.Enabled)

	fmt.Fprintln(w, "logging:")
	fmt.Fprintf(w, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(w, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "  dir: %s\n", cfg.Logging.Dir)

	fmt.Fprintln(w, "output:")
	fmt.Fprintf(w, "  dir: %s\n", cfg.Output.Dir)
	fmt.Fprintf(w, "  html: %v\n", cfg.Output.HTML)
}

func envState(name string) string {
	if name == "" {
		return "unset"
	}
	if os.Getenv(name) == "" {
		return "not set in environment"
	}
	return "set"
}

// settableKeys maps every key accepted by 'config set' to its value type.
var settableKeys = map[string]string{
	"provider.base_url":                "string",
	"provider.api_key_env":             "string",
	"provider.image_model":             "string",
	"provider.unsplash_key_env":        "string",
	"provider.brave_key_env":           "string",
	"provider.request_timeout_seconds": "int",
	"models.premium_pro":               "string",
	"models.premium":                   "string",
	"models.standard":                  "string",
	"models.economy":                   "string",
	"writer.pool_size":                 "int",
	"writer.round_delay_ms":            "int",
	"writer.temperature":               "float",
	"writer.pro_mode":                  "bool",
	"images.enabled":                   "bool",
	"images.timeout_seconds":           "int",
	"images.section_delay_ms":          "int",
	"images.per_section":               "int",
	"research.enabled":                 "bool",
	"slides.enabled":                   "bool",
	"logging.enabled":                  "bool",
	"logging.level":                    "string",
	"logging.dir":                      "string",
	"output.dir":                       "string",
	"output.html":                      "bool",
}

// parseSetting converts value to the type registered for key.
func parseSetting(key, value string) (any, error) {
	keyType, ok := settableKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'scribe config set --help' to see valid keys", key)
	}

	switch keyType {
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		return intVal, nil
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected number", key)
		}
		return f, nil
	}
	return value, nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	typedValue, err := parseSetting(key, args[1])
	if err != nil {
		return err
	}

	// Validate the whole config with the new value before persisting it
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		return err
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

// defaultConfigContent is the commented file written by 'config init'.
const defaultConfigContent = `# Scribe Configuration
# Secrets never live in this file: the *_env keys name the environment
# variables that hold them.

provider:
  # OpenAI-compatible endpoint (empty = api.openai.com)
  base_url: ""
  api_key_env: OPENAI_API_KEY
  image_model: dall-e-3
  # Photo search is skipped when this variable is unset
  unsplash_key_env: UNSPLASH_ACCESS_KEY
  # Research web search is skipped when this variable is unset
  brave_key_env: BRAVE_API_KEY
  # Per-call timeout (0 = no limit)
  request_timeout_seconds: 120

# Model used for each routing tier; empty tiers fall back to standard
models:
  premium_pro: gpt-4o
  premium: gpt-4o
  standard: gpt-4o-mini
  economy: gpt-4o-mini

writer:
  # Concurrent section writers (1-5)
  pool_size: 3
  # Pause between writer rounds
  round_delay_ms: 1000
  temperature: 0.7
  # Route core sections to the premium-pro tier
  pro_mode: false

images:
  enabled: true
  # The whole stage is abandoned after this long
  timeout_seconds: 120
  section_delay_ms: 500
  per_section: 2

research:
  enabled: true

slides:
  enabled: false

logging:
  enabled: true
  # Options: debug, info, warn, error
  level: info
  # Directory for scribe.log (empty = stderr, or the config dir under the TUI)
  dir: ""

output:
  # Each run writes into its own folder under this directory
  dir: output
  html: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'scribe config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize scribe's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. $HOME/.config/scribe/config.yaml\n")
	fmt.Fprintf(out, "  3. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: SCRIBE_* (e.g., SCRIBE_WRITER_POOL_SIZE)")
	fmt.Fprintf(out, "Keys: %s\n", strings.Join(sortedKeys(), ", "))
	return nil
}

func sortedKeys() []string {
	return slices.Sorted(maps.Keys(settableKeys))
}
