package config

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/Iron-Ham/scribe/internal/writer"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "writer.pool_size")
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

// envNameRegex matches portable environment variable names
var envNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateProvider()...)
	errors = append(errors, c.validateModels()...)
	errors = append(errors, c.validateWriter()...)
	errors = append(errors, c.validateImages()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateOutput()...)

	return errors
}

// validateProvider validates the ProviderConfig
func (c *Config) validateProvider() []ValidationError {
	var errors []ValidationError

	if c.Provider.BaseURL != "" {
		u, err := url.Parse(c.Provider.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "provider.base_url",
				Value:   c.Provider.BaseURL,
				Message: "must be an absolute http or https URL",
			})
		}
	}

	envFields := []struct {
		field string
		value string
	}{
		{"provider.api_key_env", c.Provider.APIKeyEnv},
		{"provider.unsplash_key_env", c.Provider.UnsplashKeyEnv},
		{"provider.brave_key_env", c.Provider.BraveKeyEnv},
	}
	for _, f := range envFields {
		if f.value != "" && !envNameRegex.MatchString(f.value) {
			errors = append(errors, ValidationError{
				Field:   f.field,
				Value:   f.value,
				Message: "must be an environment variable name (letters, digits, underscore)",
			})
		}
	}
	if c.Provider.APIKeyEnv == "" {
		errors = append(errors, ValidationError{
			Field:   "provider.api_key_env",
			Value:   c.Provider.APIKeyEnv,
			Message: "must name the variable holding the API key",
		})
	}

	if c.Provider.RequestTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "provider.request_timeout_seconds",
			Value:   c.Provider.RequestTimeoutSeconds,
			Message: "must be non-negative (0 = no limit)",
		})
	}

	return errors
}

// validateModels validates the ModelsConfig
func (c *Config) validateModels() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Models.Standard) == "" {
		errors = append(errors, ValidationError{
			Field:   "models.standard",
			Value:   c.Models.Standard,
			Message: "must be set; other tiers fall back to it",
		})
	}

	return errors
}

// validateWriter validates the WriterConfig
func (c *Config) validateWriter() []ValidationError {
	var errors []ValidationError

	if c.Writer.PoolSize < writer.MinPoolSize || c.Writer.PoolSize > writer.MaxPoolSize {
		errors = append(errors, ValidationError{
			Field:   "writer.pool_size",
			Value:   c.Writer.PoolSize,
			Message: fmt.Sprintf("must be between %d and %d", writer.MinPoolSize, writer.MaxPoolSize),
		})
	}

	if c.Writer.RoundDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "writer.round_delay_ms",
			Value:   c.Writer.RoundDelayMs,
			Message: "must be non-negative",
		})
	}

	if c.Writer.Temperature < 0 || c.Writer.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "writer.temperature",
			Value:   c.Writer.Temperature,
			Message: "must be between 0 and 2",
		})
	}

	return errors
}

// validateImages validates the ImagesConfig
func (c *Config) validateImages() []ValidationError {
	var errors []ValidationError

	if c.Images.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "images.timeout_seconds",
			Value:   c.Images.TimeoutSeconds,
			Message: "must be at least 1",
		})
	}

	if c.Images.SectionDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "images.section_delay_ms",
			Value:   c.Images.SectionDelayMs,
			Message: "must be non-negative",
		})
	}

	if c.Images.PerSection < 1 || c.Images.PerSection > 5 {
		errors = append(errors, ValidationError{
			Field:   "images.per_section",
			Value:   c.Images.PerSection,
			Message: "must be between 1 and 5",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if strings.ContainsRune(c.Logging.Dir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "logging.dir",
			Value:   c.Logging.Dir,
			Message: "contains invalid null character",
		})
	}

	return errors
}

// validateOutput validates the OutputConfig
func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Output.Dir) == "" {
		errors = append(errors, ValidationError{
			Field:   "output.dir",
			Value:   c.Output.Dir,
			Message: "must not be empty",
		})
	} else if strings.ContainsRune(c.Output.Dir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "output.dir",
			Value:   c.Output.Dir,
			Message: "contains invalid null character",
		})
	}

	return errors
}
