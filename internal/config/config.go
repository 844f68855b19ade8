package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/scribe/internal/provider"
	"github.com/Iron-Ham/scribe/internal/router"
)

// Config represents the complete scribe configuration
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Models   ModelsConfig   `mapstructure:"models"`
	Writer   WriterConfig   `mapstructure:"writer"`
	Images   ImagesConfig   `mapstructure:"images"`
	Research ToggleConfig   `mapstructure:"research"`
	Slides   ToggleConfig   `mapstructure:"slides"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Output   OutputConfig   `mapstructure:"output"`
}

// ProviderConfig controls how the model and image providers are reached.
// Secrets are never stored in the file; the *_env fields name the
// environment variables that hold them.
type ProviderConfig struct {
	// BaseURL overrides the OpenAI-compatible endpoint (empty = api.openai.com)
	BaseURL string `mapstructure:"base_url"`
	// APIKeyEnv names the variable holding the model API key
	APIKeyEnv string `mapstructure:"api_key_env"`
	// ImageModel is the image generation model
	ImageModel string `mapstructure:"image_model"`
	// UnsplashKeyEnv names the variable holding the Unsplash access key.
	// Photo search is disabled when it is unset.
	UnsplashKeyEnv string `mapstructure:"unsplash_key_env"`
	// BraveKeyEnv names the variable holding the Brave Search key used by
	// research. Web search is skipped when it is unset.
	BraveKeyEnv string `mapstructure:"brave_key_env"`
	// RequestTimeoutSeconds bounds each provider call (0 = no limit)
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// ModelsConfig maps each tier to a concrete model name.
type ModelsConfig struct {
	PremiumPro string `mapstructure:"premium_pro"`
	Premium    string `mapstructure:"premium"`
	Standard   string `mapstructure:"standard"`
	Economy    string `mapstructure:"economy"`
}

// WriterConfig controls the writer pool
type WriterConfig struct {
	// PoolSize is the number of concurrent writers (1-5, default: 3)
	PoolSize int `mapstructure:"pool_size"`
	// RoundDelayMs is the pause between writer rounds in milliseconds (0 disables it)
	RoundDelayMs int `mapstructure:"round_delay_ms"`
	// Temperature is the sampling temperature for section writing
	Temperature float64 `mapstructure:"temperature"`
	// ProMode routes core sections to the premium-pro tier
	ProMode bool `mapstructure:"pro_mode"`
}

// ImagesConfig controls the image curation stage
type ImagesConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// TimeoutSeconds bounds the whole stage (default: 120)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// SectionDelayMs is the pause between sections
	SectionDelayMs int `mapstructure:"section_delay_ms"`
	// PerSection caps the images attached to one section
	PerSection int `mapstructure:"per_section"`
}

// ToggleConfig switches an optional stage on or off.
type ToggleConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is active (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is where scribe.log is written (empty = stderr)
	Dir string `mapstructure:"dir"`
}

// OutputConfig controls where bundles are written
type OutputConfig struct {
	// Dir is the parent directory for per-run output folders
	Dir string `mapstructure:"dir"`
	// HTML also renders document.html
	HTML bool `mapstructure:"html"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			APIKeyEnv:             "OPENAI_API_KEY",
			ImageModel:            "dall-e-3",
			UnsplashKeyEnv:        "UNSPLASH_ACCESS_KEY",
			BraveKeyEnv:           "BRAVE_API_KEY",
			RequestTimeoutSeconds: 120,
		},
		Models: ModelsConfig{
			PremiumPro: "gpt-4o",
			Premium:    "gpt-4o",
			Standard:   "gpt-4o-mini",
			Economy:    "gpt-4o-mini",
		},
		Writer: WriterConfig{
			PoolSize:     3,
			RoundDelayMs: 1000,
			Temperature:  0.7,
		},
		Images: ImagesConfig{
			Enabled:        true,
			TimeoutSeconds: 120,
			SectionDelayMs: 500,
			PerSection:     2,
		},
		Research: ToggleConfig{Enabled: true},
		Slides:   ToggleConfig{Enabled: false},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		Output: OutputConfig{
			Dir:  "output",
			HTML: false,
		},
	}
}

// RequestTimeout returns the per-call provider timeout (0 means none)
func (c *ProviderConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// RoundDelay returns the pause between writer rounds
func (c *WriterConfig) RoundDelay() time.Duration {
	return time.Duration(c.RoundDelayMs) * time.Millisecond
}

// Timeout returns the image stage timeout
func (c *ImagesConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SectionDelay returns the pause between image sections
func (c *ImagesConfig) SectionDelay() time.Duration {
	return time.Duration(c.SectionDelayMs) * time.Millisecond
}

// TierModels converts the model table into a provider lookup.
func (m ModelsConfig) TierModels() provider.Models {
	return provider.Models{
		router.TierPremiumPro: m.PremiumPro,
		router.TierPremium:    m.Premium,
		router.TierStandard:   m.Standard,
		router.TierEconomy:    m.Economy,
	}
}

// SetDefaults registers default values with the global viper instance
func SetDefaults() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	// Provider defaults
	v.SetDefault("provider.base_url", defaults.Provider.BaseURL)
	v.SetDefault("provider.api_key_env", defaults.Provider.APIKeyEnv)
	v.SetDefault("provider.image_model", defaults.Provider.ImageModel)
	v.SetDefault("provider.unsplash_key_env", defaults.Provider.UnsplashKeyEnv)
	v.SetDefault("provider.brave_key_env", defaults.Provider.BraveKeyEnv)
	v.SetDefault("provider.request_timeout_seconds", defaults.Provider.RequestTimeoutSeconds)

	// Model defaults
	v.SetDefault("models.premium_pro", defaults.Models.PremiumPro)
	v.SetDefault("models.premium", defaults.Models.Premium)
	v.SetDefault("models.standard", defaults.Models.Standard)
	v.SetDefault("models.economy", defaults.Models.Economy)

	// Writer defaults
	v.SetDefault("writer.pool_size", defaults.Writer.PoolSize)
	v.SetDefault("writer.round_delay_ms", defaults.Writer.RoundDelayMs)
	v.SetDefault("writer.temperature", defaults.Writer.Temperature)
	v.SetDefault("writer.pro_mode", defaults.Writer.ProMode)

	// Image defaults
	v.SetDefault("images.enabled", defaults.Images.Enabled)
	v.SetDefault("images.timeout_seconds", defaults.Images.TimeoutSeconds)
	v.SetDefault("images.section_delay_ms", defaults.Images.SectionDelayMs)
	v.SetDefault("images.per_section", defaults.Images.PerSection)

	v.SetDefault("research.enabled", defaults.Research.Enabled)
	v.SetDefault("slides.enabled", defaults.Slides.Enabled)

	// Logging defaults
	v.SetDefault("logging.enabled", defaults.Logging.Enabled)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.dir", defaults.Logging.Dir)

	// Output defaults
	v.SetDefault("output.dir", defaults.Output.Dir)
	v.SetDefault("output.html", defaults.Output.HTML)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

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
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "scribe")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scribe"
	}
	return filepath.Join(home, ".config", "scribe")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
